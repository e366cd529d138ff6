package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/lineage/internal/dedupe"
)

// DedupeReport is the persisted form of one duplicate detection run
type DedupeReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	Persons     int       `json:"persons"`
	dedupe.Report
}

// Renderer writes reports as JSON or Markdown
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes v as indented JSON to path, creating parent directories.
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the duplicate report as Markdown to path.
func (r *Renderer) RenderMarkdown(rep DedupeReport, path string) error {
	var b strings.Builder
	r.WriteMarkdown(&b, rep)
	return writeFile(path, []byte(b.String()))
}

// WriteMarkdown renders the duplicate report to w.
func (r *Renderer) WriteMarkdown(w io.Writer, rep DedupeReport) {
	fmt.Fprintf(w, "# Duplicate candidates\n\n")
	fmt.Fprintf(w, "Generated %s from %d persons in %d blocks (%d pairs compared).\n\n",
		rep.GeneratedAt.Format(time.RFC3339), rep.Persons, rep.Blocks, rep.Compared)

	fmt.Fprintf(w, "## Possible duplicates (%d)\n\n", len(rep.Candidates))
	if len(rep.Candidates) == 0 {
		fmt.Fprintf(w, "None found.\n\n")
	} else {
		fmt.Fprintf(w, "| Score | Person 1 | Person 2 | Reason |\n")
		fmt.Fprintf(w, "|------:|----------|----------|--------|\n")
		for _, c := range rep.Candidates {
			fmt.Fprintf(w, "| %d | %s | %s | %s |\n", c.Score,
				stubCell(c.Person1.ID, c.Person1.Name, c.Person1.Birth),
				stubCell(c.Person2.ID, c.Person2.Name, c.Person2.Birth),
				escapeCell(c.Reason))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Surname variants (%d)\n\n", len(rep.SurnameVariants))
	for _, g := range rep.SurnameVariants {
		parts := make([]string, 0, len(g.Variants))
		for _, v := range g.Variants {
			parts = append(parts, fmt.Sprintf("%s (%d)", v.Surname, v.Count))
		}
		fmt.Fprintf(w, "- **%s** %d records: %s\n", g.Code, g.Total, strings.Join(parts, ", "))
	}
	if len(rep.SurnameVariants) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Date anomalies (%d)\n\n", len(rep.Anomalies))
	for _, a := range rep.Anomalies {
		fmt.Fprintf(w, "- [%s] #%d %s: %s\n", a.Severity, a.Person.ID, a.Person.Name, a.Description)
	}
}

func stubCell(id int64, name, birth string) string {
	s := fmt.Sprintf("#%d %s", id, name)
	if birth != "" {
		s += " (b. " + birth + ")"
	}
	return escapeCell(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
