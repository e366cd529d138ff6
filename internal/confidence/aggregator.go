// Package confidence recomputes person confidence scores from the documents
// linked to them.
package confidence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/lineage/internal/model"
)

// Store is the persistence the aggregator needs
type Store interface {
	ListPersons(ctx context.Context) ([]model.Person, error)
	MatchesByPerson(ctx context.Context) (map[int64][]model.DocumentMatch, error)
	UpdatePersonConfidence(ctx context.Context, personID int64, confidence int, tier model.Tier, base *int) error
}

// Update is the recomputed confidence for one person
type Update struct {
	PersonID   int64
	Base       int
	Bonus      int
	Confidence int
	Tier       model.Tier
	Changed    bool
}

// Summary counts the effect of one Run
type Summary struct {
	Persons int                `json:"persons"`
	Linked  int                `json:"linked"`
	Changed int                `json:"changed"`
	ByTier  map[model.Tier]int `json:"by_tier"`
}

// Aggregator computes document bonuses and tiers
type Aggregator struct {
	cfg model.ConfidenceConfig
}

// NewAggregator creates an aggregator
func NewAggregator(cfg model.ConfidenceConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Bonus returns the document bonus for a person's matches, capped at MaxBonus.
func (a *Aggregator) Bonus(matches []model.DocumentMatch) int {
	bonus := 0
	for _, m := range matches {
		if m.Verified {
			bonus += a.cfg.VerifiedBonus
		} else {
			bonus += a.cfg.UnverifiedBonus
		}
	}
	if bonus > a.cfg.MaxBonus {
		return a.cfg.MaxBonus
	}
	return bonus
}

// TierFor buckets a 0-100 score
func (a *Aggregator) TierFor(score int) model.Tier {
	switch {
	case score >= a.cfg.HighTier:
		return model.TierHigh
	case score >= a.cfg.MediumTier:
		return model.TierMedium
	case score >= a.cfg.LowTier:
		return model.TierLow
	default:
		return model.TierSpeculative
	}
}

// Recompute derives a person's confidence from the baseline plus the bonus.
// A person with no recorded baseline uses the current confidence as one.
func (a *Aggregator) Recompute(p model.Person, matches []model.DocumentMatch) Update {
	base := p.Confidence
	if p.BaseConfidence != nil {
		base = *p.BaseConfidence
	}
	bonus := a.Bonus(matches)
	score := clamp(base+bonus, 0, 100)
	tier := a.TierFor(score)

	return Update{
		PersonID:   p.ID,
		Base:       base,
		Bonus:      bonus,
		Confidence: score,
		Tier:       tier,
		Changed:    score != p.Confidence || tier != p.Tier || p.BaseConfidence == nil,
	}
}

// Run recomputes every person that has at least one document match, and
// every person with a recorded baseline whose matches have all been
// rejected. Re-running without new matches changes nothing.
func (a *Aggregator) Run(ctx context.Context, store Store, logger *slog.Logger) (Summary, error) {
	summary := Summary{ByTier: make(map[model.Tier]int)}

	people, err := store.ListPersons(ctx)
	if err != nil {
		return summary, fmt.Errorf("list persons: %w", err)
	}
	byPerson, err := store.MatchesByPerson(ctx)
	if err != nil {
		return summary, fmt.Errorf("load matches: %w", err)
	}

	summary.Persons = len(people)
	for _, p := range people {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		matches := byPerson[p.ID]
		if len(matches) == 0 && p.BaseConfidence == nil {
			summary.ByTier[p.Tier]++
			continue
		}
		if len(matches) > 0 {
			summary.Linked++
		}

		u := a.Recompute(p, matches)
		summary.ByTier[u.Tier]++
		if !u.Changed {
			continue
		}

		base := u.Base
		if err := store.UpdatePersonConfidence(ctx, p.ID, u.Confidence, u.Tier, &base); err != nil {
			return summary, fmt.Errorf("update person %d: %w", p.ID, err)
		}
		summary.Changed++
		if logger != nil {
			logger.Debug("confidence updated",
				"person_id", p.ID,
				"from", p.Confidence,
				"to", u.Confidence,
				"tier", u.Tier,
				"matches", len(matches),
			)
		}
	}

	if logger != nil {
		logger.Info("confidence recomputed", "persons", summary.Persons, "linked", summary.Linked, "changed", summary.Changed)
	}
	return summary, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
