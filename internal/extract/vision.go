package extract

import (
	"regexp"
	"strings"
)

// Labeled lines in vision model output. Models often prefix lines with
// bullets, numbering or markdown emphasis, so those are tolerated.
var (
	linePrefix      = `(?im)^[\s*\-•\d.)#]*`
	personPattern   = regexp.MustCompile(linePrefix + `PERSON\**:\**\s*(.+?)\s*$`)
	datePattern     = regexp.MustCompile(linePrefix + `DATE\**:\**\s*(.+?)\s*$`)
	placePattern    = regexp.MustCompile(linePrefix + `PLACE\**:\**\s*(.+?)\s*$`)
	relationPattern = regexp.MustCompile(linePrefix + `REL\**:\**\s*(.+?)\s+is\s+(?:the\s+|an?\s+)?([a-z][a-z\- ]*?)\s+of\s+(.+?)\s*$`)
	docTypePattern  = regexp.MustCompile(linePrefix + `DOC(?:UMENT)?\s*TYPE\**:\**\s*"?([a-z]+)`)
)

// VisionDocTypes is the closed set of document types a vision model may report.
var VisionDocTypes = map[string]bool{
	"certificate": true,
	"obituary":    true,
	"census":      true,
	"military":    true,
	"newspaper":   true,
	"letter":      true,
	"photo":       true,
	"record":      true,
	"headstone":   true,
	"other":       true,
}

// genericDocTypes may be replaced by a more specific vision classification.
var genericDocTypes = map[string]bool{
	"":         true,
	"other":    true,
	"photo":    true,
	"document": true,
}

// Relation is one "X is <relation> of Y" statement
type Relation struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// VisionRecord is the structured content of a labeled vision response.
type VisionRecord struct {
	Persons   []string   `json:"persons"`
	Dates     []string   `json:"dates,omitempty"`
	Places    []string   `json:"places,omitempty"`
	Relations []Relation `json:"relations,omitempty"`
	DocType   string     `json:"doc_type,omitempty"` // Empty unless in VisionDocTypes
}

// Names returns the persons followed by both sides of every relation, deduplicated.
func (r VisionRecord) Names() []string {
	names := append([]string(nil), r.Persons...)
	for _, rel := range r.Relations {
		names = append(names, rel.Subject, rel.Object)
	}
	var kept []string
	for _, n := range names {
		if len(n) > 2 {
			kept = append(kept, n)
		}
	}
	return dedupeNames(kept)
}

// ParseVision reads PERSON, DATE, PLACE, REL and DOCTYPE lines from vision output.
func ParseVision(text string) VisionRecord {
	var rec VisionRecord

	for _, m := range personPattern.FindAllStringSubmatch(text, -1) {
		if name := CleanName(m[1]); name != "" {
			rec.Persons = append(rec.Persons, name)
		}
	}
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		rec.Dates = append(rec.Dates, m[1])
	}
	for _, m := range placePattern.FindAllStringSubmatch(text, -1) {
		rec.Places = append(rec.Places, m[1])
	}
	for _, m := range relationPattern.FindAllStringSubmatch(text, -1) {
		rec.Relations = append(rec.Relations, Relation{
			Subject:  CleanName(m[1]),
			Relation: strings.ToLower(strings.TrimSpace(m[2])),
			Object:   CleanName(m[3]),
		})
	}
	if m := docTypePattern.FindStringSubmatch(text); m != nil {
		t := strings.ToLower(m[1])
		if VisionDocTypes[t] {
			rec.DocType = t
		}
	}

	rec.Persons = dedupeNames(rec.Persons)
	return rec
}

// UpgradeDocType returns the document type to store after a vision pass.
// A specific vision classification replaces a missing or generic one; an
// existing specific type is never overwritten.
func UpgradeDocType(existing, vision string) string {
	if vision == "" || !VisionDocTypes[vision] || genericDocTypes[vision] {
		return existing
	}
	if genericDocTypes[strings.ToLower(existing)] {
		return vision
	}
	return existing
}
