package store

import (
	"context"
	"fmt"

	"github.com/ppiankov/lineage/internal/model"
)

// Stats summarizes the database contents
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{
		ByMethod:  make(map[model.Method]int),
		ByDocType: make(map[string]int),
		ByTier:    make(map[model.Tier]int),
	}

	counters := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(1) FROM document", &st.Documents},
		{"SELECT COUNT(1) FROM document WHERE ocr_text IS NOT NULL AND ocr_text != ''", &st.WithOCR},
		{"SELECT COUNT(1) FROM document WHERE vision_text IS NOT NULL AND vision_text != ''", &st.WithVision},
		{"SELECT COUNT(1) FROM document_match", &st.Matches},
		{"SELECT COUNT(1) FROM document_match WHERE verified = 1", &st.Verified},
		{"SELECT COUNT(DISTINCT person_id) FROM document_match", &st.LinkedPersons},
		{"SELECT COUNT(1) FROM person", &st.Persons},
	}
	for _, c := range counters {
		if err := s.q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, fmt.Errorf("stats: %w", err)
		}
	}

	if err := s.groupCount(ctx, "SELECT match_type, COUNT(1) FROM document_match GROUP BY match_type", func(k string, n int) {
		st.ByMethod[model.Method(k)] = n
	}); err != nil {
		return st, err
	}
	if err := s.groupCount(ctx, "SELECT doc_type, COUNT(1) FROM document GROUP BY doc_type", func(k string, n int) {
		st.ByDocType[k] = n
	}); err != nil {
		return st, err
	}
	if err := s.groupCount(ctx, "SELECT confidence_tier, COUNT(1) FROM person GROUP BY confidence_tier", func(k string, n int) {
		st.ByTier[model.Tier(k)] = n
	}); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) groupCount(ctx context.Context, query string, fn func(key string, n int)) error {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			n int
		)
		if err := rows.Scan(&k, &n); err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fn(k, n)
	}
	return rows.Err()
}
