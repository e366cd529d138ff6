package transcribe

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/lineage/internal/cache"
	"github.com/ppiankov/lineage/internal/worker"
)

// Cached serves repeated transcriptions of unchanged files from a cache.
// Entries are keyed by file content, engine and model.
type Cached struct {
	next   Transcriber
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// WithCache wraps t so results are stored in c. A nil cache returns t.
func WithCache(t Transcriber, c cache.Cache, ttl time.Duration, logger *slog.Logger) Transcriber {
	if c == nil || t == nil {
		return t
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{next: t, cache: c, ttl: ttl, logger: logger}
}

// Name returns the wrapped engine name
func (c *Cached) Name() string {
	return c.next.Name()
}

// IsAvailable delegates to the wrapped engine
func (c *Cached) IsAvailable(ctx context.Context) bool {
	return c.next.IsAvailable(ctx)
}

// Transcribe returns the cached text for path or calls the wrapped engine.
// Empty results are not cached.
func (c *Cached) Transcribe(ctx context.Context, path string) (string, error) {
	hash, _, err := worker.HashFile(path)
	if err != nil {
		return c.next.Transcribe(ctx, path)
	}

	key := cache.TranscriptKey(hash, c.next.Name(), modelOf(c.next))
	if data, ok := c.cache.Get(key); ok {
		return string(data), nil
	}

	text, err := c.next.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	if text != "" {
		if err := c.cache.Set(key, []byte(text), c.ttl); err != nil {
			c.logger.Debug("transcript cache write failed", "engine", c.next.Name(), "path", path, "error", err)
		}
	}
	return text, nil
}

// Model returns the wrapped engine model
func (c *Cached) Model() string {
	return modelOf(c.next)
}
