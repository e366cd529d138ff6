package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/lineage/internal/model"
)

const matchColumns = "id, document_id, person_id, match_type, confidence, snippet, verified"

// MatchDetail is a match joined with the names a reviewer needs to see.
type MatchDetail struct {
	model.DocumentMatch
	Filename   string `json:"filename"`
	DocType    string `json:"doc_type"`
	PersonName string `json:"person_name"`
}

// MatchFilter narrows ListMatches
type MatchFilter struct {
	DocumentID     int64
	PersonID       int64
	Method         model.Method
	UnverifiedOnly bool
	MinConfidence  float64
	Limit          int
}

func scanMatch(row rowScanner) (model.DocumentMatch, error) {
	var (
		m        model.DocumentMatch
		method   string
		verified int
	)
	if err := row.Scan(&m.ID, &m.DocumentID, &m.PersonID, &method, &m.Confidence, &m.Snippet, &verified); err != nil {
		return m, err
	}
	m.Method = model.Method(method)
	m.Verified = verified != 0
	return m, nil
}

// GetMatch returns the match for a (document, person) pair.
func (s *Store) GetMatch(ctx context.Context, documentID, personID int64) (*model.DocumentMatch, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+matchColumns+" FROM document_match WHERE document_id = ? AND person_id = ?",
		documentID, personID)
	m, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("get match %d/%d: %w", documentID, personID, notFound(err))
	}
	return &m, nil
}

// GetMatchByID returns a match by its id
func (s *Store) GetMatchByID(ctx context.Context, id int64) (*model.DocumentMatch, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM document_match WHERE id = ?", id)
	m, err := scanMatch(row)
	if err != nil {
		return nil, fmt.Errorf("get match %d: %w", id, notFound(err))
	}
	return &m, nil
}

// InsertMatch inserts a new match row. The (document, person) pair must not exist.
func (s *Store) InsertMatch(ctx context.Context, m model.DocumentMatch) (int64, error) {
	res, err := s.exec(ctx, `INSERT INTO document_match
		(document_id, person_id, match_type, confidence, snippet, verified)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.DocumentID, m.PersonID, string(m.Method), m.Confidence, m.Snippet, boolToInt(m.Verified))
	if err != nil {
		return 0, fmt.Errorf("insert match %d/%d: %w", m.DocumentID, m.PersonID, err)
	}
	return res.LastInsertId()
}

// UpdateMatch rewrites method, confidence, snippet and verified of a match.
func (s *Store) UpdateMatch(ctx context.Context, m model.DocumentMatch) error {
	res, err := s.exec(ctx,
		"UPDATE document_match SET match_type = ?, confidence = ?, snippet = ?, verified = ? WHERE id = ?",
		string(m.Method), m.Confidence, m.Snippet, boolToInt(m.Verified), m.ID)
	if err != nil {
		return fmt.Errorf("update match %d: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update match %d: %w", m.ID, ErrNotFound)
	}
	return nil
}

// DeleteMatch removes a match
func (s *Store) DeleteMatch(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, "DELETE FROM document_match WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete match %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete match %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListMatches returns matches with document and person names, highest
// confidence first.
func (s *Store) ListMatches(ctx context.Context, f MatchFilter) ([]MatchDetail, error) {
	var (
		where []string
		args  []any
	)
	if f.DocumentID > 0 {
		where = append(where, "m.document_id = ?")
		args = append(args, f.DocumentID)
	}
	if f.PersonID > 0 {
		where = append(where, "m.person_id = ?")
		args = append(args, f.PersonID)
	}
	if f.Method != "" {
		where = append(where, "m.match_type = ?")
		args = append(args, string(f.Method))
	}
	if f.UnverifiedOnly {
		where = append(where, "m.verified = 0")
	}
	if f.MinConfidence > 0 {
		where = append(where, "m.confidence >= ?")
		args = append(args, f.MinConfidence)
	}

	query := `SELECT m.id, m.document_id, m.person_id, m.match_type, m.confidence, m.snippet, m.verified,
		d.filename, d.doc_type, TRIM(p.given_name || ' ' || p.surname)
		FROM document_match m
		JOIN document d ON d.id = m.document_id
		JOIN person p ON p.id = m.person_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY m.confidence DESC, m.id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchDetail
	for rows.Next() {
		var (
			md       MatchDetail
			method   string
			verified int
		)
		if err := rows.Scan(&md.ID, &md.DocumentID, &md.PersonID, &method, &md.Confidence, &md.Snippet, &verified,
			&md.Filename, &md.DocType, &md.PersonName); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		md.Method = model.Method(method)
		md.Verified = verified != 0
		out = append(out, md)
	}
	return out, rows.Err()
}

// MatchesByPerson groups every match by person id
func (s *Store) MatchesByPerson(ctx context.Context) (map[int64][]model.DocumentMatch, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+matchColumns+" FROM document_match ORDER BY person_id, id")
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]model.DocumentMatch)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out[m.PersonID] = append(out[m.PersonID], m)
	}
	return out, rows.Err()
}
