// Package dedupe flags person records that may describe the same individual.
// It never merges anything; every result is a lead for human review.
package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/phonetic"
)

const (
	maxVariantGroups = 50
	maxLifespan      = 120
)

// Report is the output of one detection run
type Report struct {
	Candidates      []model.DuplicateCandidate  `json:"duplicates"`
	SurnameVariants []model.SurnameVariantGroup `json:"surname_variants"`
	Anomalies       []model.Anomaly             `json:"anomalies"`
	Blocks          int                         `json:"blocks"`
	Compared        int                         `json:"compared"`
}

// Detector blocks persons by Soundex code and scores pairs within a block.
type Detector struct {
	cfg  model.DuplicateConfig
	memo *phonetic.Memo
}

// NewDetector creates a detector. The memo caches Soundex codes for the
// run and may be shared with later runs over the same table; nil disables it.
func NewDetector(cfg model.DuplicateConfig, memo *phonetic.Memo) *Detector {
	return &Detector{cfg: cfg, memo: memo}
}

// Detect runs duplicate, surname variant and anomaly detection over people.
// The result does not depend on the order of people.
func (d *Detector) Detect(people []model.Person) Report {
	var r Report

	blocks := make(map[string][]model.Person)
	for _, p := range people {
		given := strings.TrimSpace(p.GivenName)
		surname := strings.TrimSpace(p.Surname)
		if given == "" || surname == "" {
			continue
		}
		key := d.memo.Code(surname) + "_" + d.memo.Code(given)
		blocks[key] = append(blocks[key], p)
	}
	r.Blocks = len(blocks)

	seen := make(map[[2]int64]bool)
	for _, members := range blocks {
		if len(members) < 2 {
			continue
		}
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				p1, p2 := members[i], members[j]
				if p1.ID > p2.ID {
					p1, p2 = p2, p1
				}
				key := [2]int64{p1.ID, p2.ID}
				if seen[key] {
					continue
				}
				seen[key] = true
				r.Compared++
				c, ok := d.pair(p1, p2)
				if !ok {
					continue
				}
				r.Candidates = append(r.Candidates, c)
			}
		}
	}

	sort.Slice(r.Candidates, func(i, j int) bool {
		a, b := r.Candidates[i], r.Candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Person1.ID != b.Person1.ID {
			return a.Person1.ID < b.Person1.ID
		}
		return a.Person2.ID < b.Person2.ID
	})
	if max := d.cfg.MaxCandidates; max > 0 && len(r.Candidates) > max {
		r.Candidates = r.Candidates[:max]
	}

	r.SurnameVariants = d.SurnameVariants(people)
	r.Anomalies = Anomalies(people)
	return r
}

// pair scores two persons from the same block. It reports false for exact
// name duplicates and for pairs whose known birth years are too far apart.
func (d *Detector) pair(p1, p2 model.Person) (model.DuplicateCandidate, bool) {
	if strings.EqualFold(strings.TrimSpace(p1.GivenName), strings.TrimSpace(p2.GivenName)) &&
		strings.EqualFold(strings.TrimSpace(p1.Surname), strings.TrimSpace(p2.Surname)) {
		return model.DuplicateCandidate{}, false
	}

	y1, ok1 := p1.BirthYear()
	y2, ok2 := p2.BirthYear()
	bothKnown := ok1 && ok2
	if bothKnown && abs(y1-y2) > d.cfg.YearWindow {
		return model.DuplicateCandidate{}, false
	}

	score := 0
	switch {
	case bothKnown && y1 == y2:
		score += d.cfg.SameYearPoints
	case bothKnown && abs(y1-y2) <= d.cfg.CloseYearWindow:
		score += d.cfg.CloseYearPoints
	}
	if d.memo.Code(p1.Surname) == d.memo.Code(p2.Surname) {
		score += d.cfg.SurnamePoints
	}
	if d.memo.Code(p1.GivenName) == d.memo.Code(p2.GivenName) {
		score += d.cfg.GivenPoints
	}
	if placesOverlap(p1.BirthPlace, p2.BirthPlace) {
		score += d.cfg.PlacePoints
	}

	return model.DuplicateCandidate{
		Person1: model.StubOf(p1),
		Person2: model.StubOf(p2),
		Score:   score,
		Reason:  fmt.Sprintf("Soundex: %s/%s, %s/%s", p1.Surname, p2.Surname, p1.GivenName, p2.GivenName),
	}, true
}

func placesOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
