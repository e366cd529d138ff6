// Package transcribe turns document images into text, either raw OCR or
// labeled output from a vision model.
package transcribe

import (
	"context"
	"errors"
	"strings"
)

// Transcriber converts one file into text
type Transcriber interface {
	// Name returns the engine name
	Name() string

	// Transcribe returns the text read from the file at path
	Transcribe(ctx context.Context, path string) (string, error)

	// IsAvailable checks if the backend is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Role selects the prompt an engine is driven with
type Role string

const (
	RoleOCR    Role = "ocr"
	RoleVision Role = "vision"
)

// ErrUnsupportedFile is returned for files an engine cannot read.
var ErrUnsupportedFile = errors.New("unsupported file type")

// VisionPrompt asks a vision model for labeled lines the vision parser understands.
const VisionPrompt = `Analyze this genealogy document image. Extract ALL text and information:

1. PEOPLE: Every person name. Format: "PERSON: Firstname Lastname"
2. DATES: Every date. Format: "DATE: YYYY-MM-DD description"
3. PLACES: Locations. Format: "PLACE: City, State/Country"
4. RELATIONSHIPS: Family relationships. Format: "REL: Person1 is [relationship] of Person2"
5. DOCTYPE: One of: certificate, obituary, census, military, newspaper, letter, photo, record, other
6. SUMMARY: One sentence describing the document.

Be thorough. Extract every name and date visible.`

// OCRPrompt asks a vision model for a plain transcription.
const OCRPrompt = "Extract ALL text visible in this document exactly as written. Include every name, date, place, and any other text."

// PromptFor returns the prompt for a role, preferring override when set.
func PromptFor(role Role, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	if role == RoleVision {
		return VisionPrompt
	}
	return OCRPrompt
}
