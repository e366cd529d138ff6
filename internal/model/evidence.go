package model

import "time"

// Source identifies where a piece of evidence text came from
type Source string

const (
	SourceFilename Source = "filename" // Description derived from the file name
	SourceOCR      Source = "ocr"      // Raw OCR transcription
	SourceVision   Source = "vision"   // Labeled output of a vision model
)

// String returns the source name
func (s Source) String() string {
	return string(s)
}

// Evidence is the raw text captured for one document by one phase.
// Re-running a phase overwrites that phase's text.
type Evidence struct {
	DocumentID int64  `json:"document_id"`
	Source     Source `json:"source"`
	Text       string `json:"text"`
}

// Document is a scanned file registered by the filename pass.
type Document struct {
	ID          int64      `json:"id"`
	Filename    string     `json:"filename"`
	Filepath    string     `json:"filepath"`              // Unique
	DocType     string     `json:"doc_type"`
	Description string     `json:"description,omitempty"` // Filename stem without sequence and hash tokens
	FileHash    string     `json:"file_hash,omitempty"`   // SHA-256 of file contents
	SeqNum      int        `json:"seq_num,omitempty"`
	OCRText     string     `json:"ocr_text,omitempty"`
	OCRDate     *time.Time `json:"ocr_date,omitempty"`
	VisionText  string     `json:"vision_text,omitempty"`
	VisionDate  *time.Time `json:"vision_date,omitempty"`
}

// Text returns the document's evidence text for a source.
func (d Document) Text(source Source) string {
	switch source {
	case SourceFilename:
		return d.Description
	case SourceOCR:
		return d.OCRText
	case SourceVision:
		return d.VisionText
	}
	return ""
}

// Extraction holds candidate names and years pulled from one evidence text.
type Extraction struct {
	Source  Source   `json:"source"`
	Names   []string `json:"names"`              // Ordered, deduplicated
	Years   []int    `json:"years"`              // Distinct 4-digit years in the same text
	DocType string   `json:"doc_type,omitempty"` // Document type reported by a vision model
}

// HasYear reports whether y appears in the extraction's year set.
func (e Extraction) HasYear(y int) bool {
	for _, v := range e.Years {
		if v == y {
			return true
		}
	}
	return false
}
