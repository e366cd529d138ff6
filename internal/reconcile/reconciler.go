// Package reconcile merges scored candidates into the persisted set of
// document matches. Automatic passes only insert or raise confidence; rows
// are removed only by an explicit rejection.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/lineage/internal/model"
)

// MatchStore persists document matches keyed by (document, person).
// Lookups of missing rows return an error wrapping model.ErrNotFound.
type MatchStore interface {
	GetMatch(ctx context.Context, documentID, personID int64) (*model.DocumentMatch, error)
	InsertMatch(ctx context.Context, m model.DocumentMatch) (int64, error)
	UpdateMatch(ctx context.Context, m model.DocumentMatch) error
	GetMatchByID(ctx context.Context, id int64) (*model.DocumentMatch, error)
	DeleteMatch(ctx context.Context, id int64) error
}

// Outcome counts what one Apply call did
type Outcome struct {
	Inserted  int
	Upgraded  int
	Unchanged int
}

// Add accumulates another outcome
func (o *Outcome) Add(other Outcome) {
	o.Inserted += other.Inserted
	o.Upgraded += other.Upgraded
	o.Unchanged += other.Unchanged
}

// Reconciler applies candidates to a MatchStore
type Reconciler struct {
	store MatchStore
}

// New creates a reconciler over store
func New(store MatchStore) *Reconciler {
	return &Reconciler{store: store}
}

// Round3 rounds a confidence to three decimals, the stored precision.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Apply records candidates for a document produced by method.
//
// A missing pair is inserted unverified. An existing pair is updated in place
// only when the new confidence is strictly greater; the verified flag is kept.
func (r *Reconciler) Apply(ctx context.Context, documentID int64, method model.Method, candidates []model.Candidate) (Outcome, error) {
	var out Outcome
	for _, c := range candidates {
		conf := Round3(c.Confidence)

		existing, err := r.store.GetMatch(ctx, documentID, c.PersonID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return out, fmt.Errorf("get match %d/%d: %w", documentID, c.PersonID, err)
		}

		if existing == nil {
			_, err := r.store.InsertMatch(ctx, model.DocumentMatch{
				DocumentID: documentID,
				PersonID:   c.PersonID,
				Method:     method,
				Confidence: conf,
				Snippet:    c.Snippet,
			})
			if err != nil {
				return out, fmt.Errorf("insert match %d/%d: %w", documentID, c.PersonID, err)
			}
			out.Inserted++
			continue
		}

		if conf <= existing.Confidence {
			out.Unchanged++
			continue
		}

		existing.Confidence = conf
		existing.Method = method
		existing.Snippet = c.Snippet
		if err := r.store.UpdateMatch(ctx, *existing); err != nil {
			return out, fmt.Errorf("update match %d: %w", existing.ID, err)
		}
		out.Upgraded++
	}
	return out, nil
}

// Link records a human-asserted match: manual, confidence 1.0, verified.
// An existing automatic row for the pair is overwritten.
func (r *Reconciler) Link(ctx context.Context, documentID, personID int64, snippet string) (int64, error) {
	existing, err := r.store.GetMatch(ctx, documentID, personID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return 0, fmt.Errorf("get match %d/%d: %w", documentID, personID, err)
	}

	m := model.DocumentMatch{
		DocumentID: documentID,
		PersonID:   personID,
		Method:     model.MethodManual,
		Confidence: 1.0,
		Snippet:    snippet,
		Verified:   true,
	}
	if existing != nil {
		m.ID = existing.ID
		if snippet == "" {
			m.Snippet = existing.Snippet
		}
		if err := r.store.UpdateMatch(ctx, m); err != nil {
			return 0, fmt.Errorf("update match %d: %w", m.ID, err)
		}
		return m.ID, nil
	}

	id, err := r.store.InsertMatch(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("insert match %d/%d: %w", documentID, personID, err)
	}
	return id, nil
}

// Verify marks a match as confirmed by a human.
func (r *Reconciler) Verify(ctx context.Context, matchID int64) error {
	m, err := r.store.GetMatchByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get match %d: %w", matchID, err)
	}
	if m.Verified {
		return nil
	}
	m.Verified = true
	if err := r.store.UpdateMatch(ctx, *m); err != nil {
		return fmt.Errorf("verify match %d: %w", matchID, err)
	}
	return nil
}

// Reject deletes a match. This is the only path that removes a row.
func (r *Reconciler) Reject(ctx context.Context, matchID int64) error {
	if _, err := r.store.GetMatchByID(ctx, matchID); err != nil {
		return fmt.Errorf("get match %d: %w", matchID, err)
	}
	if err := r.store.DeleteMatch(ctx, matchID); err != nil {
		return fmt.Errorf("reject match %d: %w", matchID, err)
	}
	return nil
}
