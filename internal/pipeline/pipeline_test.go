package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/lineage/internal/dedupe"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/store"
	"github.com/ppiankov/lineage/internal/worker"
)

const (
	obitFile   = "0001_Obituary for Thomas J. Lack_a1b2c3d4.jpg"
	letterFile = "0004_Letter.pdf"
	scanFile   = "0005_IMG_1234.png"
)

// fakeEngine returns canned text per file name
type fakeEngine struct {
	texts     map[string]string
	errs      map[string]error
	failAll   bool
	available bool
	calls     int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) IsAvailable(context.Context) bool { return f.available }

func (f *fakeEngine) Transcribe(_ context.Context, path string) (string, error) {
	f.calls++
	base := filepath.Base(path)
	if f.failAll {
		return "", errors.New("connection refused")
	}
	if err := f.errs[base]; err != nil {
		return "", err
	}
	return f.texts[base], nil
}

type fixture struct {
	cfg    *model.Config
	store  *store.Store
	raw    string
	thomas int64
	mary   int64
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw")

	writeFixture(t, filepath.Join(raw, obitFile), "obituary scan")
	writeFixture(t, filepath.Join(raw, letterFile), "letter pdf")
	writeFixture(t, filepath.Join(raw, scanFile), "camera scan")
	writeFixture(t, filepath.Join(raw, "0006_IMG_2000.png"), "second scan")
	writeFixture(t, filepath.Join(raw, "0007_IMG_3000.png"), "third scan")
	writeFixture(t, filepath.Join(raw, "copy", obitFile), "obituary scan") // same content
	writeFixture(t, filepath.Join(raw, "thumbs", "0003_Thumb.jpg"), "thumbnail")
	writeFixture(t, filepath.Join(raw, "notes.txt"), "not a document")

	cfg := model.DefaultConfig()
	cfg.Scan.RawDir = raw
	cfg.Database.Path = filepath.Join(dir, "lineage.db")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	thomas, err := st.AddPerson(ctx, model.Person{GivenName: "Thomas", Surname: "Lack", BirthDate: "1861"})
	if err != nil {
		t.Fatal(err)
	}
	mary, err := st.AddPerson(ctx, model.Person{GivenName: "Mary", Surname: "Harrison", BirthDate: "12 MAR 1838", DeathDate: "14 May 1923"})
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{cfg: cfg, store: st, raw: raw, thomas: thomas, mary: mary}
}

func (f *fixture) docID(t *testing.T, name string) int64 {
	t.Helper()
	d, err := f.store.GetDocumentByPath(context.Background(), filepath.Join(f.raw, name))
	if err != nil {
		t.Fatalf("document %s: %v", name, err)
	}
	return d.ID
}

func findRun(t *testing.T, st *store.Store, id string) store.Run {
	t.Helper()
	runs, err := st.ListRuns(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range runs {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("run %s not recorded", id)
	return store.Run{}
}

func TestParsePasses(t *testing.T) {
	tests := []struct {
		in      string
		want    []Pass
		wantErr bool
	}{
		{"filename,ocr,vision", []Pass{PassFilename, PassOCR, PassVision}, false},
		{"vision, filename", []Pass{PassFilename, PassVision}, false},
		{"all", []Pass{PassFilename, PassOCR, PassVision}, false},
		{"OCR", []Pass{PassOCR}, false},
		{"", nil, true},
		{"filename,gedcom", nil, true},
	}

	for _, tt := range tests {
		got, err := ParsePasses(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePasses(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if strings.Join(passStrings(got), ",") != strings.Join(passStrings(tt.want), ",") {
			t.Errorf("ParsePasses(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func passStrings(ps []Pass) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func TestFilenamePass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := New(f.cfg, Deps{Store: f.store})

	res, err := p.FilenamePass(ctx)
	if err != nil {
		t.Fatalf("filename pass failed: %v", err)
	}
	if res.Summary.Total != 6 || res.Summary.Processed != 5 || res.Summary.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if res.Summary.Stop != worker.StopCompleted {
		t.Errorf("expected completed, got %s", res.Summary.Stop)
	}

	docs, err := f.store.ListDocuments(ctx, store.DocumentFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 5 {
		t.Fatalf("expected 5 documents (duplicate copy and thumbs skipped), got %d", len(docs))
	}
	for _, d := range docs {
		if strings.Contains(d.Filepath, "copy") || strings.Contains(d.Filepath, "thumbs") {
			t.Errorf("unexpected document registered: %s", d.Filepath)
		}
	}

	obit := f.docID(t, obitFile)
	m, err := f.store.GetMatch(ctx, obit, f.thomas)
	if err != nil {
		t.Fatalf("expected Thomas Lack to be matched: %v", err)
	}
	if m.Method != model.MethodFilename || m.Confidence < 0.82 {
		t.Errorf("unexpected match: %+v", m)
	}
	if !strings.Contains(m.Snippet, "Thomas J. Lack") {
		t.Errorf("expected snippet from the description, got %q", m.Snippet)
	}
	if res.Matches.Inserted != 1 {
		t.Errorf("expected one match, got %+v", res.Matches)
	}

	d, _ := f.store.GetDocument(ctx, obit)
	if d.DocType != "obituary" || d.SeqNum != 1 || d.Description != "Obituary for Thomas J. Lack" {
		t.Errorf("unexpected document: %+v", d)
	}

	run := findRun(t, f.store, res.RunID)
	if run.Status != store.RunCompleted || run.Processed != 5 || run.Matched != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}

	// A second run over the same archive changes nothing
	again, err := p.FilenamePass(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Summary.Processed != 0 || again.Summary.Skipped != 6 {
		t.Errorf("expected everything skipped, got %+v", again.Summary)
	}
}

func TestOCRPass_ToleratesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ocr := &fakeEngine{
		texts: map[string]string{scanFile: "Obituary\nMARY A HARRISON died at her home"},
		errs:  map[string]error{obitFile: errors.New("tesseract: timeout")},
	}
	p := New(f.cfg, Deps{Store: f.store, OCR: ocr})

	if _, err := p.FilenamePass(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := p.OCRPass(ctx)
	if err != nil {
		t.Fatalf("OCR pass failed: %v", err)
	}

	// The pdf is skipped, the failed call is counted and the batch continues
	if res.Summary.Processed != 3 || res.Summary.Skipped != 1 || res.Summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if ocr.calls != 4 {
		t.Errorf("expected 4 transcription calls, got %d", ocr.calls)
	}

	scan := f.docID(t, scanFile)
	m, err := f.store.GetMatch(ctx, scan, f.mary)
	if err != nil {
		t.Fatalf("expected Mary Harrison to be matched: %v", err)
	}
	if m.Method != model.MethodOCR || m.Confidence < 0.82 {
		t.Errorf("unexpected match: %+v", m)
	}

	d, _ := f.store.GetDocument(ctx, scan)
	if !strings.Contains(d.OCRText, "MARY A HARRISON") || d.OCRDate == nil {
		t.Errorf("expected OCR text to be stored, got %+v", d)
	}

	// Only documents still without text are retried
	missing, _ := f.store.ListDocuments(ctx, store.DocumentFilter{MissingOCR: true})
	if len(missing) != 4 {
		t.Errorf("expected 4 documents still missing OCR, got %d", len(missing))
	}
}

func TestOCRPass_Disabled(t *testing.T) {
	f := newFixture(t)
	p := New(f.cfg, Deps{Store: f.store})

	res, err := p.OCRPass(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped == "" {
		t.Error("expected the pass to report why it was skipped")
	}
}

func TestVisionPass_MatchesAndUpgradesDocType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vision := &fakeEngine{
		available: true,
		texts: map[string]string{
			obitFile: "PERSON: Thomas Lack\nDOCTYPE: obituary",
			scanFile: "1. PERSON: Mary Harrison\n2. DATE: 1923-05-14 death\n5. DOCTYPE: obituary",
		},
	}
	p := New(f.cfg, Deps{Store: f.store, Vision: vision})

	if _, err := p.FilenamePass(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := p.VisionPass(ctx)
	if err != nil {
		t.Fatalf("vision pass failed: %v", err)
	}

	// Thomas already matched at 1.0 from the file name; only Mary is new
	if res.Matches.Inserted != 1 || res.Matches.Upgraded != 0 || res.Matches.Unchanged != 1 {
		t.Errorf("unexpected match outcome: %+v", res.Matches)
	}

	scan := f.docID(t, scanFile)
	m, err := f.store.GetMatch(ctx, scan, f.mary)
	if err != nil {
		t.Fatalf("expected Mary Harrison to be matched: %v", err)
	}
	if m.Method != model.MethodVision || m.Confidence != 1.0 {
		t.Errorf("unexpected match: %+v", m)
	}

	d, _ := f.store.GetDocument(ctx, scan)
	if d.DocType != "obituary" {
		t.Errorf("expected photo to be upgraded to obituary, got %s", d.DocType)
	}

	thomasMatch, _ := f.store.GetMatch(ctx, f.docID(t, obitFile), f.thomas)
	if thomasMatch.Method != model.MethodFilename {
		t.Errorf("equal confidence must not replace the filename match: %+v", thomasMatch)
	}
}

func TestVisionPass_BackendUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vision := &fakeEngine{failAll: true, available: false}
	p := New(f.cfg, Deps{Store: f.store, Vision: vision})

	if _, err := p.FilenamePass(ctx); err != nil {
		t.Fatal(err)
	}
	res, err := p.VisionPass(ctx)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if res.Summary.Failed != 3 || res.Summary.Stop != worker.StopUnavailable {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if vision.calls != 3 {
		t.Errorf("expected the pass to stop after 3 calls, got %d", vision.calls)
	}

	run := findRun(t, f.store, res.RunID)
	if run.Status != store.RunStopped || run.Failures != 3 || run.FinishedAt == nil {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(f.cfg, Deps{Store: f.store})
	results, err := p.Run(ctx, []Pass{PassFilename, PassOCR})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no passes to run, got %d", len(results))
	}
}

func TestSnippet(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Match.SnippetLength = 8
	p := New(cfg, Deps{})

	if got := p.snippet("Obituary MARY A HARRISON died", "Mary A Harrison"); got != "y MARY A" {
		t.Errorf("unexpected snippet %q", got)
	}
	if got := p.snippet("Über ZOË  MÜLLER starb", "Zoë Müller"); got != "r ZOË MÜ" {
		t.Errorf("unexpected snippet around accented name %q", got)
	}
	if got := p.snippet("nothing here", "Mary Harrison"); got != "Mary Harrison" {
		t.Errorf("expected the name when not found, got %q", got)
	}
}

func TestRenderer_Markdown(t *testing.T) {
	rep := DedupeReport{
		Persons: 2,
		Report: dedupe.Report{
			Candidates: []model.DuplicateCandidate{{
				Person1: model.PersonStub{ID: 1, Name: "Mary Harrison", Birth: "1850"},
				Person2: model.PersonStub{ID: 2, Name: "Marie Harison", Birth: "1851"},
				Score:   6,
				Reason:  "Soundex: Harrison/Harison, Mary/Marie",
			}},
			Anomalies: []model.Anomaly{{
				Kind:        model.AnomalyDeathBeforeBirth,
				Severity:    "high",
				Person:      model.PersonStub{ID: 3, Name: "John Lack"},
				Description: "Death (1840) before birth (1850)",
			}},
		},
	}

	var b strings.Builder
	NewRenderer().WriteMarkdown(&b, rep)
	out := b.String()

	for _, want := range []string{
		"| 6 | #1 Mary Harrison (b. 1850) | #2 Marie Harison (b. 1851) | Soundex: Harrison/Harison, Mary/Marie |",
		"## Surname variants (0)",
		"- [high] #3 John Lack: Death (1840) before birth (1850)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "reports", "dupes.json")
	if err := NewRenderer().RenderJSON(rep, path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"duplicates"`) || !strings.Contains(string(data), `"persons": 2`) {
		t.Errorf("unexpected JSON report: %s", data)
	}
}
