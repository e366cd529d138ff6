package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/model"
)

const documentColumns = `id, filename, filepath, doc_type, description, file_hash, seq_num,
	ocr_text, ocr_date, vision_text, vision_date`

// DocumentFilter narrows ListDocuments
type DocumentFilter struct {
	MissingOCR    bool // only documents without OCR text
	MissingVision bool // only documents without vision text
	DocType       string
	Limit         int
}

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		d          model.Document
		seq        sql.NullInt64
		ocrText    sql.NullString
		ocrDate    sql.NullString
		visionText sql.NullString
		visionDate sql.NullString
	)
	err := row.Scan(&d.ID, &d.Filename, &d.Filepath, &d.DocType, &d.Description, &d.FileHash, &seq,
		&ocrText, &ocrDate, &visionText, &visionDate)
	if err != nil {
		return d, err
	}
	if seq.Valid {
		d.SeqNum = int(seq.Int64)
	}
	d.OCRText = ocrText.String
	d.OCRDate = parseTime(ocrDate)
	d.VisionText = visionText.String
	d.VisionDate = parseTime(visionDate)
	return d, nil
}

// UpsertDocument inserts a document or refreshes the filename-derived
// fields of the row with the same filepath. Evidence text is untouched.
func (s *Store) UpsertDocument(ctx context.Context, d model.Document) (int64, error) {
	var seq any
	if d.SeqNum > 0 {
		seq = d.SeqNum
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.q.QueryRowContext(ctx, `INSERT INTO document
			(filename, filepath, doc_type, description, file_hash, seq_num)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(filepath) DO UPDATE SET
				filename = excluded.filename,
				doc_type = excluded.doc_type,
				description = excluded.description,
				file_hash = excluded.file_hash,
				seq_num = excluded.seq_num
			RETURNING id`,
			d.Filename, d.Filepath, d.DocType, d.Description, d.FileHash, seq).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert document %s: %w", d.Filepath, err)
	}
	return id, nil
}

// GetDocument fetches a document by id
func (s *Store) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM document WHERE id = ?", id)
	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, notFound(err))
	}
	return &d, nil
}

// GetDocumentByPath fetches a document by its file path
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*model.Document, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM document WHERE filepath = ?", path)
	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", path, notFound(err))
	}
	return &d, nil
}

// HashExists reports whether any document carries the given content hash.
func (s *Store) HashExists(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(1) FROM document WHERE file_hash = ?", hash).Scan(&n); err != nil {
		return false, fmt.Errorf("check hash: %w", err)
	}
	return n > 0, nil
}

// ListDocuments returns documents ordered by id
func (s *Store) ListDocuments(ctx context.Context, f DocumentFilter) ([]model.Document, error) {
	var (
		where []string
		args  []any
	)
	if f.MissingOCR {
		where = append(where, "(ocr_text IS NULL OR ocr_text = '')")
	}
	if f.MissingVision {
		where = append(where, "(vision_text IS NULL OR vision_text = '')")
	}
	if f.DocType != "" {
		where = append(where, "doc_type = ?")
		args = append(args, f.DocType)
	}

	query := "SELECT " + documentColumns + " FROM document"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetEvidence overwrites the OCR or vision text of a document.
func (s *Store) SetEvidence(ctx context.Context, ev model.Evidence, at time.Time) error {
	var query string
	switch ev.Source {
	case model.SourceOCR:
		query = "UPDATE document SET ocr_text = ?, ocr_date = ? WHERE id = ?"
	case model.SourceVision:
		query = "UPDATE document SET vision_text = ?, vision_date = ? WHERE id = ?"
	default:
		return fmt.Errorf("set evidence: source %q is not stored", ev.Source)
	}
	res, err := s.exec(ctx, query, ev.Text, formatTime(at), ev.DocumentID)
	if err != nil {
		return fmt.Errorf("set %s evidence for document %d: %w", ev.Source, ev.DocumentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set %s evidence for document %d: %w", ev.Source, ev.DocumentID, ErrNotFound)
	}
	return nil
}

// SetDocType updates the document type
func (s *Store) SetDocType(ctx context.Context, documentID int64, docType string) error {
	if _, err := s.exec(ctx, "UPDATE document SET doc_type = ? WHERE id = ?", docType, documentID); err != nil {
		return fmt.Errorf("set doc type for document %d: %w", documentID, err)
	}
	return nil
}
