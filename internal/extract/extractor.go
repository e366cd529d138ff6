// Package extract pulls candidate person names and years out of noisy
// evidence text: archive file names, OCR transcriptions and labeled
// vision model output.
package extract

import (
	"strings"

	"github.com/ppiankov/lineage/internal/model"
)

// Extractor dispatches evidence text to the parser for its source.
type Extractor struct {
	minTextLength int
}

// NewExtractor creates an extractor. OCR and vision text shorter than
// minTextLength yields no names.
func NewExtractor(minTextLength int) *Extractor {
	return &Extractor{minTextLength: minTextLength}
}

// Extract returns candidate names and years for one piece of evidence.
func (e *Extractor) Extract(source model.Source, text string) model.Extraction {
	switch source {
	case model.SourceFilename:
		return e.FromFilename(text)
	case model.SourceVision:
		return e.FromVision(text)
	default:
		return e.FromOCR(text)
	}
}

// FromFilename parses a file name or its description.
func (e *Extractor) FromFilename(filename string) model.Extraction {
	info := ParseFilename(filename)
	return model.Extraction{
		Source: model.SourceFilename,
		Names:  info.Names,
		Years:  info.Years,
	}
}

// FromOCR scans free text for name-shaped runs.
func (e *Extractor) FromOCR(text string) model.Extraction {
	ext := model.Extraction{Source: model.SourceOCR}
	if len(strings.TrimSpace(text)) < e.minTextLength {
		return ext
	}
	ext.Names = FreeTextNames(text)
	ext.Years = Years(text)
	return ext
}

// FromVision reads labeled vision output.
func (e *Extractor) FromVision(text string) model.Extraction {
	ext := model.Extraction{Source: model.SourceVision}
	if len(strings.TrimSpace(text)) < e.minTextLength {
		return ext
	}
	rec := ParseVision(text)
	ext.Names = rec.Names()
	ext.Years = Years(text)
	ext.DocType = rec.DocType
	return ext
}
