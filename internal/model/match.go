package model

// Method records which phase produced a document match
type Method string

const (
	MethodFilename Method = "filename"
	MethodOCR      Method = "ocr_auto"
	MethodVision   Method = "vision_auto"
	MethodManual   Method = "manual"
)

// String returns the method name
func (m Method) String() string {
	return string(m)
}

// MethodFor maps an evidence source to the match method it produces.
func MethodFor(source Source) Method {
	switch source {
	case SourceOCR:
		return MethodOCR
	case SourceVision:
		return MethodVision
	default:
		return MethodFilename
	}
}

// DocumentMatch links a document to a person.
// At most one row exists per (DocumentID, PersonID).
type DocumentMatch struct {
	ID         int64   `json:"id"`
	DocumentID int64   `json:"document_id"`
	PersonID   int64   `json:"person_id"`
	Method     Method  `json:"match_type"`
	Confidence float64 `json:"confidence"` // 0.0-1.0, stored rounded to 3 decimals
	Snippet    string  `json:"snippet,omitempty"`
	Verified   bool    `json:"verified"`
}

// Candidate is a scored person for one piece of evidence, before reconciliation.
type Candidate struct {
	PersonID   int64   `json:"person_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Snippet    string  `json:"snippet,omitempty"`
}

// PersonStub is the slice of a person shown in duplicate reports.
type PersonStub struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Birth      string `json:"birth,omitempty"`
	BirthPlace string `json:"birth_place,omitempty"`
}

// StubOf builds a PersonStub from a person record.
func StubOf(p Person) PersonStub {
	return PersonStub{
		ID:         p.ID,
		Name:       p.FullName(),
		Birth:      p.BirthDate,
		BirthPlace: p.BirthPlace,
	}
}

// DuplicateCandidate is a pair of persons that may describe the same individual.
// Person1.ID is always lower than Person2.ID.
type DuplicateCandidate struct {
	Person1 PersonStub `json:"person1"`
	Person2 PersonStub `json:"person2"`
	Score   int        `json:"score"`
	Reason  string     `json:"reason"`
}

// SurnameCount is one spelling inside a surname variant group
type SurnameCount struct {
	Surname string `json:"surname"`
	Count   int    `json:"count"`
}

// SurnameVariantGroup collects surname spellings sharing a Soundex code.
type SurnameVariantGroup struct {
	Code     string         `json:"soundex"`
	Variants []SurnameCount `json:"variants"`
	Total    int            `json:"total"`
}

// Stats summarizes documents and matches in the database
type Stats struct {
	Documents     int            `json:"documents"`
	WithOCR       int            `json:"with_ocr"`
	WithVision    int            `json:"with_vision"`
	Matches       int            `json:"matches"`
	Verified      int            `json:"verified"`
	LinkedPersons int            `json:"linked_persons"`
	Persons       int            `json:"persons"`
	ByMethod      map[Method]int `json:"by_method"`
	ByDocType     map[string]int `json:"by_doc_type"`
	ByTier        map[Tier]int   `json:"by_tier"`
}

// AnomalyKind names a data problem found in a single person record
type AnomalyKind string

const (
	AnomalyDeathBeforeBirth AnomalyKind = "death_before_birth"
	AnomalyImpossibleAge    AnomalyKind = "impossible_age"
)

// Anomaly is a date inconsistency surfaced alongside duplicate candidates.
type Anomaly struct {
	Kind        AnomalyKind `json:"type"`
	Severity    string      `json:"severity"` // high or medium
	Person      PersonStub  `json:"person"`
	Description string      `json:"description"`
}
