package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Person is a canonical identity record imported from the family tree.
// Only the confidence aggregator and manual edits mutate it after import.
type Person struct {
	ID             int64  `json:"id"`
	Xref           string `json:"xref,omitempty"` // GEDCOM cross-reference (e.g. @I42@)
	GivenName      string `json:"given_name"`
	Surname        string `json:"surname"`
	Sex            string `json:"sex,omitempty"`
	BirthDate      string `json:"birth_date,omitempty"` // Free-form, possibly partial ("ABT 1850")
	BirthPlace     string `json:"birth_place,omitempty"`
	DeathDate      string `json:"death_date,omitempty"`
	DeathPlace     string `json:"death_place,omitempty"`
	Confidence     int    `json:"confidence"` // 0-100
	Tier           Tier   `json:"confidence_tier"`
	BaseConfidence *int   `json:"base_confidence,omitempty"` // Baseline before document bonuses
}

// FullName joins given name and surname with a single space.
func (p Person) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.GivenName) + " " + strings.TrimSpace(p.Surname))
}

// BirthYear returns the year of the birth date, if one can be read.
func (p Person) BirthYear() (int, bool) {
	return YearOf(p.BirthDate)
}

// DeathYear returns the year of the death date, if one can be read.
func (p Person) DeathYear() (int, bool) {
	return YearOf(p.DeathDate)
}

var yearRunPattern = regexp.MustCompile(`\d{4}`)

// YearOf returns the first run of four digits in a free-form date string.
func YearOf(date string) (int, bool) {
	m := yearRunPattern.FindString(date)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// Tier buckets a person's confidence score.
type Tier string

const (
	TierSpeculative Tier = "speculative"
	TierLow         Tier = "low"
	TierMedium      Tier = "medium"
	TierHigh        Tier = "high"
)

// String returns the tier name
func (t Tier) String() string {
	return string(t)
}
