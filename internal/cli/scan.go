package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ppiankov/lineage/internal/cache"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/pipeline"
	"github.com/ppiankov/lineage/internal/transcribe"
	"github.com/ppiankov/lineage/internal/worker"
)

var (
	scanPasses      string
	scanRescan      bool
	scanMaxDuration time.Duration
	scanNoCache     bool
	scanNoProgress  bool
	scanJSON        string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "Register scanned documents and match them to persons",
	Long: `Scan walks the document folder and runs the matching passes in order:

  filename  register new files and match names found in their file names
  ocr       transcribe images without OCR text and match the transcription
  vision    send images to a vision model and match its labeled output

Each pass commits at checkpoints. Ctrl-C stops after the current document
and keeps everything committed so far.

Example:
  lineage scan ./raw
  lineage scan --passes ocr,vision --max-duration 30m
  lineage scan --passes filename --rescan`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanPasses, "passes", "filename,ocr,vision", "passes to run (filename, ocr, vision or all)")
	scanCmd.Flags().BoolVar(&scanRescan, "rescan", false, "reprocess documents that already have results")
	scanCmd.Flags().DurationVar(&scanMaxDuration, "max-duration", 0, "stop the vision pass after this long (0 means no limit)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "disable the transcription cache")
	scanCmd.Flags().BoolVar(&scanNoProgress, "no-progress", false, "disable the progress bar")
	scanCmd.Flags().StringVar(&scanJSON, "json", "", "write pass results as JSON to this path")
}

func runScan(cmd *cobra.Command, args []string) error {
	passes, err := pipeline.ParsePasses(scanPasses)
	if err != nil {
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if len(args) == 1 {
		e.cfg.Scan.RawDir = args[0]
	}
	if cmd.Flags().Changed("rescan") {
		e.cfg.Scan.Rescan = scanRescan
	}
	if cmd.Flags().Changed("max-duration") {
		e.cfg.Scan.MaxDuration = scanMaxDuration
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var tcache *cache.Layered
	if e.cfg.Cache.Enabled && !scanNoCache {
		tcache = cache.NewLayered(e.cfg.Cache.MemoryTTL, e.cfg.Cache.Dir, e.cfg.Cache.DiskTTL)
		defer func() {
			if err := tcache.Close(); err != nil {
				e.logger.Warn("cache flush failed", "error", err)
			}
		}()
	}

	limiter := worker.NewLimiter(0, 1)
	deps := pipeline.Deps{Store: e.store, Cache: tcache, Logger: e.logger}
	for _, pass := range passes {
		switch pass {
		case pipeline.PassOCR:
			if deps.OCR, err = buildTranscriber(ctx, e, e.cfg.OCR, transcribe.RoleOCR, tcache, limiter); err != nil {
				return err
			}
		case pipeline.PassVision:
			if deps.Vision, err = buildTranscriber(ctx, e, e.cfg.Vision, transcribe.RoleVision, tcache, limiter); err != nil {
				return err
			}
		}
	}

	var bar *passBar
	if !scanNoProgress && isTerminal(os.Stderr) {
		bar = &passBar{}
		deps.Progress = bar.update
	}

	fmt.Fprintf(os.Stderr, "Scanning %s into %s\n", e.cfg.Scan.RawDir, e.store.Path())

	p := pipeline.New(e.cfg, deps)
	return e.withWriter(ctx, func(ctx context.Context) error {
		results, runErr := p.Run(ctx, passes)
		bar.finish()

		printScanSummary(results)
		if tcache != nil && verbose {
			st := tcache.Stats()
			fmt.Fprintf(os.Stderr, "Transcription cache: %d hits, %d misses\n", st.Hits, st.Misses)
		}
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "Interrupted; committed work is kept. Run the same command to resume.\n")
		}

		if scanJSON != "" {
			if err := pipeline.NewRenderer().RenderJSON(results, scanJSON); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", scanJSON)
		}
		return runErr
	})
}

// buildTranscriber creates the engine for role with rate limiting and
// caching. A disabled engine returns nil.
func buildTranscriber(ctx context.Context, e *env, cfg model.EngineConfig, role transcribe.Role, tcache *cache.Layered, limiter *worker.Limiter) (transcribe.Transcriber, error) {
	t, err := transcribe.New(cfg, role, e.logger)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	if !t.IsAvailable(ctx) {
		e.logger.Warn("transcription backend not reachable yet", "role", string(role), "engine", t.Name())
	}

	limiter.SetRate(t.Name(), cfg.RequestsPerSecond, 1)
	t = transcribe.WithLimiter(t, limiter)
	if tcache != nil {
		t = transcribe.WithCache(t, tcache, 0, e.logger) // layer defaults
	}
	return t, nil
}

func printScanSummary(results []pipeline.PassResult) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		stop := string(r.Summary.Stop)
		if r.Skipped != "" {
			stop = r.Skipped
		}
		rows = append(rows, []string{
			string(r.Pass),
			strconv.Itoa(r.Summary.Total),
			strconv.Itoa(r.Summary.Processed),
			strconv.Itoa(r.Summary.Skipped),
			strconv.Itoa(r.Summary.Failed),
			strconv.Itoa(r.Matches.Inserted),
			strconv.Itoa(r.Matches.Upgraded),
			r.Summary.Elapsed.Round(time.Second).String(),
			stop,
		})
	}
	fmt.Println(renderTable(
		[]string{"Pass", "Documents", "Processed", "Skipped", "Failed", "New", "Upgraded", "Elapsed", "Stop"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}

// passBar shows one progress bar per pass on stderr
type passBar struct {
	bar  *progressbar.ProgressBar
	pass pipeline.Pass
}

func (b *passBar) update(pass pipeline.Pass, done, total int) {
	if b.bar == nil || b.pass != pass {
		b.finish()
		b.pass = pass
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(string(pass)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = b.bar.Set(done)
}

func (b *passBar) finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	b.bar = nil
}
