// Package score ranks persons against the names and years extracted from
// one piece of evidence.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/lineage/internal/model"
)

// Scorer computes person match confidences from an extraction
type Scorer struct {
	cfg model.MatchConfig
}

// NewScorer creates a new scorer
func NewScorer(cfg model.MatchConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Breakdown is the transparent scoring detail for one person.
type Breakdown struct {
	Name        string  `json:"name"`         // Candidate name that produced the best score
	FullName    float64 `json:"full_name"`    // Best full-name similarity
	Component   float64 `json:"component"`    // Best weighted given/surname score, 0 if gated out
	SurnameOnly float64 `json:"surname_only"` // Discounted surname-only score, 0 if unused
	YearBoost   float64 `json:"year_boost"`
	Total       float64 `json:"total"` // min(best + year boost, 1.0)
}

// Score computes the breakdown for a single person.
func (s *Scorer) Score(p model.Person, ext model.Extraction) Breakdown {
	var b Breakdown

	full := p.FullName()
	given := strings.TrimSpace(p.GivenName)
	surname := strings.TrimSpace(p.Surname)
	best := 0.0

	for _, candidate := range ext.Names {
		sim := Similarity(full, candidate)
		if sim > b.FullName {
			b.FullName = sim
		}
		if sim > best {
			best = sim
			b.Name = candidate
		}

		parts := strings.Fields(candidate)
		if given != "" && surname != "" && len(parts) >= 2 {
			givenSim := Similarity(given, parts[0])
			surnameSim := Similarity(surname, parts[len(parts)-1])
			if givenSim > s.cfg.ComponentGate && surnameSim > s.cfg.ComponentGate {
				combined := s.cfg.GivenWeight*givenSim + s.cfg.SurnameWeight*surnameSim
				if combined > b.Component {
					b.Component = combined
				}
				if combined > best {
					best = combined
					b.Name = candidate
				}
			}
		}

		if len(surname) > 2 && best < s.cfg.PromisingScore {
			for _, word := range parts {
				surnameSim := Similarity(surname, word)
				if surnameSim <= s.cfg.SurnameOnlyGate {
					continue
				}
				discounted := surnameSim * s.cfg.SurnameOnlyWeight
				if discounted > b.SurnameOnly {
					b.SurnameOnly = discounted
				}
				if discounted > best {
					best = discounted
					b.Name = candidate
				}
			}
		}
	}

	if y, ok := p.BirthYear(); ok && ext.HasYear(y) {
		b.YearBoost += s.cfg.BirthYearBoost
	}
	if y, ok := p.DeathYear(); ok && ext.HasYear(y) {
		b.YearBoost += s.cfg.DeathYearBoost
	}

	b.Total = math.Min(best+b.YearBoost, 1.0)
	return b
}

// Match scores every person and returns those at or above threshold,
// highest confidence first, at most MaxMatchesPerDocument.
func (s *Scorer) Match(ext model.Extraction, people []model.Person, threshold float64) []model.Candidate {
	if len(ext.Names) == 0 {
		return nil
	}

	var matches []model.Candidate
	for _, p := range people {
		full := p.FullName()
		if len(full) < 3 {
			continue
		}
		b := s.Score(p, ext)
		if b.Total < threshold {
			continue
		}
		matches = append(matches, model.Candidate{
			PersonID:   p.ID,
			Name:       full,
			Confidence: b.Total,
			Snippet:    b.Name,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].PersonID < matches[j].PersonID
	})

	if max := s.cfg.MaxMatchesPerDocument; max > 0 && len(matches) > max {
		matches = matches[:max]
	}
	return matches
}

// MatchSource scores an extraction with the threshold for its source.
func (s *Scorer) MatchSource(ext model.Extraction, people []model.Person) []model.Candidate {
	return s.Match(ext, people, s.cfg.ThresholdFor(ext.Source))
}
