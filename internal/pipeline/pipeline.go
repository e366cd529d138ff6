// Package pipeline runs the matching passes over the document archive:
// filename, then OCR, then vision. Each pass walks its documents in
// sequence, reconciles matches into the store and commits at checkpoints.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/lineage/internal/cache"
	"github.com/ppiankov/lineage/internal/extract"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/reconcile"
	"github.com/ppiankov/lineage/internal/score"
	"github.com/ppiankov/lineage/internal/store"
	"github.com/ppiankov/lineage/internal/transcribe"
	"github.com/ppiankov/lineage/internal/worker"
)

// ErrBackendUnavailable is returned when a transcription backend keeps
// failing and no longer answers its availability check.
var ErrBackendUnavailable = errors.New("transcription backend unavailable")

// Pass names one matching pass
type Pass string

const (
	PassFilename Pass = "filename"
	PassOCR      Pass = "ocr"
	PassVision   Pass = "vision"
)

var passOrder = []Pass{PassFilename, PassOCR, PassVision}

// ParsePasses parses a comma separated pass list and returns it in run order.
func ParsePasses(s string) ([]Pass, error) {
	want := make(map[Pass]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == "all" {
			return append([]Pass(nil), passOrder...), nil
		}
		p := Pass(part)
		if p != PassFilename && p != PassOCR && p != PassVision {
			return nil, fmt.Errorf("unknown pass %q (supported: filename, ocr, vision)", part)
		}
		want[p] = true
	}

	var passes []Pass
	for _, p := range passOrder {
		if want[p] {
			passes = append(passes, p)
		}
	}
	if len(passes) == 0 {
		return nil, errors.New("no passes selected")
	}
	return passes, nil
}

// Deps are the collaborators a pipeline runs against. Only Store is required;
// a nil transcriber disables its pass.
type Deps struct {
	Store    *store.Store
	OCR      transcribe.Transcriber
	Vision   transcribe.Transcriber
	Cache    *cache.Layered
	Logger   *slog.Logger
	Progress func(pass Pass, done, total int)
}

// Pipeline orchestrates the matching passes
type Pipeline struct {
	store     *store.Store
	ocr       transcribe.Transcriber
	vision    transcribe.Transcriber
	cache     *cache.Layered
	extractor *extract.Extractor
	scorer    *score.Scorer
	cfg       *model.Config
	logger    *slog.Logger
	progress  func(pass Pass, done, total int)
	now       func() time.Time
}

// New creates a new pipeline with the given configuration
func New(cfg *model.Config, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		store:     deps.Store,
		ocr:       deps.OCR,
		vision:    deps.Vision,
		cache:     deps.Cache,
		extractor: extract.NewExtractor(cfg.Match.MinTextLength),
		scorer:    score.NewScorer(cfg.Match),
		cfg:       cfg,
		logger:    logger,
		progress:  deps.Progress,
		now:       time.Now,
	}
}

// PassResult reports one pass
type PassResult struct {
	Pass    Pass              `json:"pass"`
	RunID   string            `json:"run_id"`
	Summary worker.Summary    `json:"summary"`
	Matches reconcile.Outcome `json:"matches"`
	Skipped string            `json:"skipped,omitempty"` // Why the pass did not run
}

// Run executes passes in order. It stops early when ctx is cancelled or a
// pass fails, returning the results gathered so far.
func (p *Pipeline) Run(ctx context.Context, passes []Pass) ([]PassResult, error) {
	var results []PassResult
	for _, pass := range passes {
		if ctx.Err() != nil {
			break
		}

		var (
			res PassResult
			err error
		)
		switch pass {
		case PassFilename:
			res, err = p.FilenamePass(ctx)
		case PassOCR:
			res, err = p.OCRPass(ctx)
		case PassVision:
			res, err = p.VisionPass(ctx)
		default:
			err = fmt.Errorf("unknown pass %q", pass)
		}
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s pass: %w", pass, err)
		}
	}
	return results, nil
}

// batch is the state of one pass: the open transaction and the run record.
type batch struct {
	tx      *store.Tx
	run     store.Run
	matches reconcile.Outcome
	people  []model.Person
}

// reconcile applies candidates through the open transaction
func (b *batch) reconcile(ctx context.Context, documentID int64, method model.Method, candidates []model.Candidate) error {
	out, err := reconcile.New(b.tx).Apply(ctx, documentID, method, candidates)
	b.matches.Add(out)
	b.run.Matched += out.Inserted + out.Upgraded
	return err
}

// passSpec describes how to drive one pass
type passSpec struct {
	pass        Pass
	total       int
	every       int
	maxDuration time.Duration
	probe       func(ctx context.Context) bool
	step        func(ctx context.Context, b *batch, i int) (worker.Outcome, error)
}

// execute runs spec under a scan run record, committing at every checkpoint.
func (p *Pipeline) execute(ctx context.Context, spec passSpec) (PassResult, error) {
	res := PassResult{Pass: spec.pass}

	people, err := p.store.ListPersons(ctx)
	if err != nil {
		return res, fmt.Errorf("load persons: %w", err)
	}

	runID, err := p.store.StartRun(ctx, string(spec.pass), p.now())
	if err != nil {
		return res, err
	}
	res.RunID = runID

	b := &batch{run: store.Run{ID: runID, Pass: string(spec.pass)}, people: people}
	if b.tx, err = p.store.Begin(ctx); err != nil {
		p.finish(ctx, &res, b, err)
		return res, err
	}
	defer func() { _ = b.tx.Rollback() }()

	logger := p.logger.With("pass", string(spec.pass), "run_id", runID)
	logger.Info("pass started", "documents", spec.total, "persons", len(people))

	var failures *worker.FailureTracker
	if spec.probe != nil {
		failures = worker.NewFailureTracker(p.cfg.Scan.FailureThreshold)
	}

	runner := &worker.Runner{
		CheckpointEvery: spec.every,
		MaxDuration:     spec.maxDuration,
		Failures:        failures,
		Probe:           spec.probe,
		Logger:          logger,
		Checkpoint: func(ctx context.Context) error {
			return p.checkpoint(ctx, b)
		},
		Progress: func(done, total int) {
			if p.progress != nil {
				p.progress(spec.pass, done, total)
			}
		},
	}

	summary, runErr := runner.Run(ctx, spec.total, func(ctx context.Context, i int) (worker.Outcome, error) {
		return spec.step(ctx, b, i)
	})
	res.Summary = summary
	res.Matches = b.matches
	b.run.Processed = summary.Processed
	b.run.Failures = summary.Failed

	if runErr == nil && summary.Stop == worker.StopUnavailable {
		runErr = ErrBackendUnavailable
	}
	p.finish(ctx, &res, b, runErr)

	logger.Info("pass finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"inserted", b.matches.Inserted,
		"upgraded", b.matches.Upgraded,
		"stop", summary.Stop,
		"elapsed", summary.Elapsed.Round(time.Millisecond),
	)
	return res, runErr
}

// checkpoint commits the open transaction, flushes the transcription cache
// and starts the next transaction.
func (p *Pipeline) checkpoint(ctx context.Context, b *batch) error {
	if err := b.tx.UpdateRunProgress(ctx, b.run); err != nil {
		return err
	}
	if err := b.tx.Commit(); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Flush(); err != nil {
			p.logger.Warn("cache flush failed", "error", err)
		}
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

// finish records the final state of a run. The transaction must already be
// committed or abandoned.
func (p *Pipeline) finish(ctx context.Context, res *PassResult, b *batch, runErr error) {
	if b.tx != nil {
		_ = b.tx.Rollback()
	}

	status := store.RunCompleted
	switch {
	case runErr != nil && !errors.Is(runErr, ErrBackendUnavailable):
		status = store.RunFailed
	case res.Summary.Stop != worker.StopCompleted:
		status = store.RunStopped
	}

	b.run.Status = status
	if runErr != nil {
		b.run.Error = runErr.Error()
	}
	if err := p.store.FinishRun(context.WithoutCancel(ctx), b.run, p.now()); err != nil {
		p.logger.Warn("failed to record run", "run_id", b.run.ID, "error", err)
	}
}

// snippet returns up to SnippetLength runes of text around the first
// occurrence of name, or name itself when it is not found verbatim.
func (p *Pipeline) snippet(text, name string) string {
	n := p.cfg.Match.SnippetLength
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || text == "" || name == "" {
		return name
	}

	// unicode.ToLower maps rune to rune, so rune offsets in lower match text.
	lower := strings.Map(unicode.ToLower, text)
	idx := strings.Index(lower, strings.Map(unicode.ToLower, name))
	if idx < 0 {
		return name
	}
	runes := []rune(text)
	start := utf8.RuneCountInString(lower[:idx]) - n/4
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
