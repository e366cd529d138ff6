package transcribe

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/model"
)

// New creates a transcriber for role based on configuration.
// An empty engine name disables the role and returns nil.
func New(cfg model.EngineConfig, role Role, logger *slog.Logger) (Transcriber, error) {
	switch strings.ToLower(cfg.Engine) {
	case "tesseract":
		return NewTesseractEngine(cfg.Command, cfg.Language, time.Duration(cfg.Timeout)*time.Second, logger), nil

	case "ollama":
		return NewOllamaEngine(cfg, role, logger)

	case "openai":
		return NewOpenAIEngine(cfg, role, logger)

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown %s engine: %s (supported: tesseract, ollama, openai)", role, cfg.Engine)
	}
}

// modelOf returns the model name of engines that have one
func modelOf(t Transcriber) string {
	if m, ok := t.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
