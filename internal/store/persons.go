package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/lineage/internal/model"
)

const personColumns = `id, xref, given_name, surname, sex, birth_date, birth_place,
	death_date, death_place, confidence, confidence_tier, base_confidence`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (model.Person, error) {
	var (
		p    model.Person
		tier string
		base sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Xref, &p.GivenName, &p.Surname, &p.Sex, &p.BirthDate, &p.BirthPlace,
		&p.DeathDate, &p.DeathPlace, &p.Confidence, &tier, &base)
	if err != nil {
		return p, err
	}
	p.Tier = model.Tier(tier)
	if base.Valid {
		b := int(base.Int64)
		p.BaseConfidence = &b
	}
	return p, nil
}

// AddPerson inserts a person and returns its id. Persons normally arrive
// through the family tree import; this is used for seeding and tests.
func (s *Store) AddPerson(ctx context.Context, p model.Person) (int64, error) {
	if p.Tier == "" {
		p.Tier = model.TierSpeculative
	}
	var base any
	if p.BaseConfidence != nil {
		base = *p.BaseConfidence
	}
	res, err := s.exec(ctx, `INSERT INTO person
		(xref, given_name, surname, sex, birth_date, birth_place, death_date, death_place,
		 confidence, confidence_tier, base_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Xref, p.GivenName, p.Surname, p.Sex, p.BirthDate, p.BirthPlace, p.DeathDate, p.DeathPlace,
		p.Confidence, string(p.Tier), base)
	if err != nil {
		return 0, fmt.Errorf("insert person: %w", err)
	}
	return res.LastInsertId()
}

// GetPerson fetches a person by id
func (s *Store) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+personColumns+" FROM person WHERE id = ?", id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("get person %d: %w", id, notFound(err))
	}
	return &p, nil
}

// ListPersons returns every person ordered by id
func (s *Store) ListPersons(ctx context.Context) ([]model.Person, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+personColumns+" FROM person ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// UpdatePersonConfidence stores a recomputed confidence, tier and baseline.
func (s *Store) UpdatePersonConfidence(ctx context.Context, personID int64, confidence int, tier model.Tier, base *int) error {
	var baseArg any
	if base != nil {
		baseArg = *base
	}
	res, err := s.exec(ctx,
		"UPDATE person SET confidence = ?, confidence_tier = ?, base_confidence = COALESCE(?, base_confidence) WHERE id = ?",
		confidence, string(tier), baseArg, personID)
	if err != nil {
		return fmt.Errorf("update person %d: %w", personID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update person %d: %w", personID, ErrNotFound)
	}
	return nil
}
