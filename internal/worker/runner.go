package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Outcome is what a step did with one item
type Outcome int

const (
	Processed Outcome = iota
	Skipped
)

// StopReason explains why a run ended
type StopReason string

const (
	StopCompleted   StopReason = "completed"
	StopCancelled   StopReason = "cancelled"
	StopTimeLimit   StopReason = "time_limit"
	StopUnavailable StopReason = "backend_unavailable"
)

// Step handles item i. A returned error counts as a failure of that item
// and the run continues, unless the error is wrapped with Fatal.
type Step func(ctx context.Context, i int) (Outcome, error)

// Summary counts what a run did
type Summary struct {
	Total       int           `json:"total"`
	Processed   int           `json:"processed"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Checkpoints int           `json:"checkpoints"`
	Stop        StopReason    `json:"stop"`
	Elapsed     time.Duration `json:"elapsed"`
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks a step error as one that must abort the run.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// Runner drives one pass over a list of items strictly in sequence.
//
// Every CheckpointEvery processed items, and once more when the run stops
// for any reason other than a fatal error, Checkpoint is called so the
// caller can commit. Items are never processed concurrently.
type Runner struct {
	CheckpointEvery int
	MaxDuration     time.Duration // 0 means no limit
	Checkpoint      func(ctx context.Context) error
	Failures        *FailureTracker
	Probe           func(ctx context.Context) bool // asked when the batch stalls
	Progress        func(done, total int)
	Logger          *slog.Logger

	now func() time.Time
}

// Run calls step for items 0..total-1.
func (r *Runner) Run(ctx context.Context, total int, step Step) (Summary, error) {
	now := r.now
	if now == nil {
		now = time.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	failures := r.Failures
	if failures == nil {
		failures = NewFailureTracker(0)
	}

	start := now()
	s := Summary{Total: total, Stop: StopCompleted}
	sinceCheckpoint := 0

	checkpoint := func() error {
		if sinceCheckpoint == 0 {
			return nil
		}
		if r.Checkpoint != nil {
			// Commit even when ctx is already cancelled.
			if err := r.Checkpoint(context.WithoutCancel(ctx)); err != nil {
				return Fatal(err)
			}
		}
		s.Checkpoints++
		sinceCheckpoint = 0
		// A streak of failures carries over until something succeeds.
		if failures.Successes() > 0 {
			failures.Reset()
		}
		logger.Debug("checkpoint", "processed", s.Processed, "failed", s.Failed, "total", total)
		return nil
	}

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			s.Stop = StopCancelled
			break
		}
		if r.MaxDuration > 0 && now().Sub(start) >= r.MaxDuration {
			s.Stop = StopTimeLimit
			break
		}

		outcome, err := step(ctx, i)
		switch {
		case err != nil && IsFatal(err):
			s.Elapsed = now().Sub(start)
			return s, err
		case err != nil && ctx.Err() != nil:
			// Interrupted mid-item; not the item's fault.
			s.Stop = StopCancelled
		case err != nil:
			s.Failed++
			sinceCheckpoint++
			failures.RecordFailure()
			logger.Warn("item failed", "index", i, "error", err)
		case outcome == Skipped:
			s.Skipped++
		default:
			s.Processed++
			sinceCheckpoint++
			failures.RecordSuccess()
		}
		if s.Stop == StopCancelled {
			break
		}

		if r.Progress != nil {
			r.Progress(i+1, total)
		}

		if failures.Stalled() {
			if r.Probe != nil && !r.Probe(ctx) {
				s.Stop = StopUnavailable
				logger.Warn("backend unavailable, stopping", "failed", s.Failed)
				break
			}
			failures.Reset()
		}

		if r.CheckpointEvery > 0 && sinceCheckpoint >= r.CheckpointEvery {
			if err := checkpoint(); err != nil {
				s.Elapsed = now().Sub(start)
				return s, err
			}
		}
	}

	if err := checkpoint(); err != nil {
		s.Elapsed = now().Sub(start)
		return s, err
	}
	s.Elapsed = now().Sub(start)
	return s, nil
}
