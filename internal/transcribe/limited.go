package transcribe

import (
	"context"

	"github.com/ppiankov/lineage/internal/worker"
)

// Limited throttles calls to a backend through a shared limiter keyed by
// engine name.
type Limited struct {
	next    Transcriber
	limiter *worker.Limiter
}

// WithLimiter wraps t so each Transcribe waits on l first
func WithLimiter(t Transcriber, l *worker.Limiter) Transcriber {
	if l == nil || t == nil {
		return t
	}
	return &Limited{next: t, limiter: l}
}

// Name returns the wrapped engine name
func (l *Limited) Name() string {
	return l.next.Name()
}

// IsAvailable delegates to the wrapped engine
func (l *Limited) IsAvailable(ctx context.Context) bool {
	return l.next.IsAvailable(ctx)
}

// Transcribe waits for the limiter and then calls the wrapped engine.
func (l *Limited) Transcribe(ctx context.Context, path string) (string, error) {
	if err := l.limiter.Wait(ctx, l.next.Name()); err != nil {
		return "", err
	}
	return l.next.Transcribe(ctx, path)
}

// Model returns the wrapped engine model
func (l *Limited) Model() string {
	return modelOf(l.next)
}
