package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/extract"
)

// TesseractEngine runs the tesseract command line tool.
type TesseractEngine struct {
	command  string
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewTesseractEngine creates a Tesseract engine
func NewTesseractEngine(command, language string, timeout time.Duration, logger *slog.Logger) *TesseractEngine {
	if command == "" {
		command = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TesseractEngine{command: command, language: language, timeout: timeout, logger: logger}
}

// Name returns the engine name
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// IsAvailable checks that the tesseract binary runs
func (e *TesseractEngine) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, e.command, "--version").Run(); err != nil {
		e.logger.Warn("tesseract availability check failed", "command", e.command, "error", err)
		return false
	}
	return true
}

// Transcribe OCRs an image file and returns the trimmed text.
func (e *TesseractEngine) Transcribe(ctx context.Context, path string) (string, error) {
	if !extract.IsImage(path) {
		return "", fmt.Errorf("tesseract %s: %w", path, ErrUnsupportedFile)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, path, "stdout", "-l", e.language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("tesseract %s: %w: %s", path, err, msg)
		}
		return "", fmt.Errorf("tesseract %s: %w", path, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
