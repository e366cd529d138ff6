package dedupe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/lineage/internal/model"
)

// SurnameVariants groups distinct surname spellings by Soundex code.
//
// A group is reported when it holds more than one spelling (compared on the
// lower-cased first word) and at least MinVariantTotal persons. Groups are
// ordered by total, largest first; spellings inside a group by count.
func (d *Detector) SurnameVariants(people []model.Person) []model.SurnameVariantGroup {
	counts := make(map[string]int)
	for _, p := range people {
		s := strings.TrimSpace(p.Surname)
		if s == "" {
			continue
		}
		counts[s]++
	}

	groups := make(map[string][]model.SurnameCount)
	for s, n := range counts {
		code := d.memo.Code(s)
		if code == "" {
			continue
		}
		groups[code] = append(groups[code], model.SurnameCount{Surname: s, Count: n})
	}

	var out []model.SurnameVariantGroup
	for code, variants := range groups {
		spellings := make(map[string]bool)
		total := 0
		for _, v := range variants {
			spellings[strings.ToLower(strings.Fields(v.Surname)[0])] = true
			total += v.Count
		}
		if len(spellings) < 2 || total < d.cfg.MinVariantTotal {
			continue
		}
		sort.Slice(variants, func(i, j int) bool {
			if variants[i].Count != variants[j].Count {
				return variants[i].Count > variants[j].Count
			}
			return variants[i].Surname < variants[j].Surname
		})
		out = append(out, model.SurnameVariantGroup{Code: code, Variants: variants, Total: total})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Code < out[j].Code
	})
	if len(out) > maxVariantGroups {
		out = out[:maxVariantGroups]
	}
	return out
}

// Anomalies reports persons whose death year precedes their birth year or
// whose lifespan exceeds a plausible maximum.
func Anomalies(people []model.Person) []model.Anomaly {
	var out []model.Anomaly
	for _, p := range people {
		by, okB := p.BirthYear()
		dy, okD := p.DeathYear()
		if !okB || !okD {
			continue
		}
		switch {
		case dy < by:
			out = append(out, model.Anomaly{
				Kind:        model.AnomalyDeathBeforeBirth,
				Severity:    "high",
				Person:      model.StubOf(p),
				Description: fmt.Sprintf("Death (%s) before birth (%s)", p.DeathDate, p.BirthDate),
			})
		case dy-by > maxLifespan:
			out = append(out, model.Anomaly{
				Kind:        model.AnomalyImpossibleAge,
				Severity:    "medium",
				Person:      model.StubOf(p),
				Description: fmt.Sprintf("Lived %d years (%s to %s)", dy-by, p.BirthDate, p.DeathDate),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Person.ID < out[j].Person.ID })
	return out
}
