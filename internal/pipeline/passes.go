package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/extract"
	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/store"
	"github.com/ppiankov/lineage/internal/transcribe"
	"github.com/ppiankov/lineage/internal/worker"
)

// FilenamePass registers every archive file under the raw directory and
// matches persons against the names in its file name.
//
// A path already registered is skipped unless rescanning. A new path whose
// content hash is already registered is a duplicate copy and is skipped.
func (p *Pipeline) FilenamePass(ctx context.Context) (PassResult, error) {
	files, problems, err := CollectFiles(ctx, p.cfg.Scan.RawDir, p.cfg.Scan.Extensions, p.cfg.Scan.SkipDirs)
	if err != nil {
		return PassResult{Pass: PassFilename}, err
	}
	for _, e := range problems {
		p.logger.Warn("skipping unreadable file", "error", e)
	}

	return p.execute(ctx, passSpec{
		pass:  PassFilename,
		total: len(files),
		every: p.cfg.Scan.FilenameEvery,
		step: func(ctx context.Context, b *batch, i int) (worker.Outcome, error) {
			return p.filenameStep(ctx, b, files[i])
		},
	})
}

func (p *Pipeline) filenameStep(ctx context.Context, b *batch, f File) (worker.Outcome, error) {
	existing, err := b.tx.GetDocumentByPath(ctx, f.Path)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return worker.Skipped, worker.Fatal(err)
	}
	if existing != nil && !p.cfg.Scan.Rescan {
		return worker.Skipped, nil
	}
	if existing == nil {
		dup, err := b.tx.HashExists(ctx, f.Hash)
		if err != nil {
			return worker.Skipped, worker.Fatal(err)
		}
		if dup {
			p.logger.Debug("duplicate file content", "path", f.Path)
			return worker.Skipped, nil
		}
	}

	name := filepath.Base(f.Path)
	info := extract.ParseFilename(name)
	doc := model.Document{
		Filename:    name,
		Filepath:    f.Path,
		DocType:     extract.GuessDocType(name),
		Description: info.Description,
		FileHash:    f.Hash,
		SeqNum:      info.SeqNum,
	}
	if existing != nil {
		doc.DocType = extract.UpgradeDocType(doc.DocType, existing.DocType)
	}

	id, err := b.tx.UpsertDocument(ctx, doc)
	if err != nil {
		return worker.Skipped, worker.Fatal(err)
	}

	ext := p.extractor.FromFilename(name)
	candidates := p.scorer.MatchSource(ext, b.people)
	for i := range candidates {
		candidates[i].Snippet = p.snippet(info.Description, candidates[i].Snippet)
	}
	if err := b.reconcile(ctx, id, model.MethodFilename, candidates); err != nil {
		return worker.Skipped, worker.Fatal(err)
	}
	return worker.Processed, nil
}

// OCRPass transcribes registered image documents without OCR text (all of
// them when rescanning) and matches persons against the transcription.
func (p *Pipeline) OCRPass(ctx context.Context) (PassResult, error) {
	if p.ocr == nil {
		return PassResult{Pass: PassOCR, Skipped: "no OCR engine configured"}, nil
	}
	return p.textPass(ctx, textPassSpec{
		pass:   PassOCR,
		source: model.SourceOCR,
		engine: p.ocr,
		every:  p.cfg.Scan.OCREvery,
		filter: store.DocumentFilter{MissingOCR: !p.cfg.Scan.Rescan},
	})
}

// VisionPass sends registered image documents without vision text to the
// vision model, matches persons against its labeled output and upgrades
// generic document types. The backend is probed when calls keep failing.
func (p *Pipeline) VisionPass(ctx context.Context) (PassResult, error) {
	if p.vision == nil {
		return PassResult{Pass: PassVision, Skipped: "no vision engine configured"}, nil
	}
	return p.textPass(ctx, textPassSpec{
		pass:        PassVision,
		source:      model.SourceVision,
		engine:      p.vision,
		every:       p.cfg.Scan.VisionEvery,
		maxDuration: p.cfg.Scan.MaxDuration,
		filter:      store.DocumentFilter{MissingVision: !p.cfg.Scan.Rescan},
		probe:       true,
	})
}

type textPassSpec struct {
	pass        Pass
	source      model.Source
	engine      transcribe.Transcriber
	every       int
	maxDuration time.Duration
	filter      store.DocumentFilter
	probe       bool
}

func (p *Pipeline) textPass(ctx context.Context, spec textPassSpec) (PassResult, error) {
	docs, err := p.store.ListDocuments(ctx, spec.filter)
	if err != nil {
		return PassResult{Pass: spec.pass}, err
	}

	ps := passSpec{
		pass:        spec.pass,
		total:       len(docs),
		every:       spec.every,
		maxDuration: spec.maxDuration,
		step: func(ctx context.Context, b *batch, i int) (worker.Outcome, error) {
			return p.textStep(ctx, b, spec, docs[i])
		},
	}
	if spec.probe {
		ps.probe = spec.engine.IsAvailable
	}
	return p.execute(ctx, ps)
}

func (p *Pipeline) textStep(ctx context.Context, b *batch, spec textPassSpec, doc model.Document) (worker.Outcome, error) {
	if !extract.IsImage(doc.Filepath) {
		return worker.Skipped, nil
	}
	if _, err := os.Stat(doc.Filepath); err != nil {
		p.logger.Debug("document file missing", "document_id", doc.ID, "path", doc.Filepath)
		return worker.Skipped, nil
	}

	text, err := spec.engine.Transcribe(ctx, doc.Filepath)
	if err != nil {
		if errors.Is(err, transcribe.ErrUnsupportedFile) {
			return worker.Skipped, nil
		}
		return worker.Skipped, fmt.Errorf("document %d: %w", doc.ID, err)
	}
	text = strings.TrimSpace(text)

	if err := b.tx.SetEvidence(ctx, model.Evidence{DocumentID: doc.ID, Source: spec.source, Text: text}, p.now()); err != nil {
		return worker.Skipped, worker.Fatal(err)
	}

	ext := p.extractor.Extract(spec.source, text)
	if spec.source == model.SourceVision {
		if upgraded := extract.UpgradeDocType(doc.DocType, ext.DocType); upgraded != doc.DocType {
			if err := b.tx.SetDocType(ctx, doc.ID, upgraded); err != nil {
				return worker.Skipped, worker.Fatal(err)
			}
		}
	}
	if len(ext.Names) == 0 {
		return worker.Processed, nil
	}

	candidates := p.scorer.MatchSource(ext, b.people)
	for i := range candidates {
		candidates[i].Snippet = p.snippet(text, candidates[i].Snippet)
	}
	if err := b.reconcile(ctx, doc.ID, model.MethodFor(spec.source), candidates); err != nil {
		return worker.Skipped, worker.Fatal(err)
	}
	return worker.Processed, nil
}
