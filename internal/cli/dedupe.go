package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lineage/internal/dedupe"
	"github.com/ppiankov/lineage/internal/phonetic"
	"github.com/ppiankov/lineage/internal/pipeline"
)

var (
	dedupeLimit int
	dedupeJSON  string
	dedupeMD    string
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find person records that may be duplicates",
	Long: `Dedupe groups persons by the Soundex codes of their surname and given
name, scores pairs with close birth years inside each group and lists the
strongest candidates. It also reports surname spelling variants and
impossible dates. Nothing is merged.

Example:
  lineage dedupe
  lineage dedupe --limit 20 --md duplicates.md --json duplicates.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		people, err := e.store.ListPersons(cmd.Context())
		if err != nil {
			return err
		}

		cfg := e.cfg.Duplicates
		if cmd.Flags().Changed("limit") {
			cfg.MaxCandidates = dedupeLimit
		}

		memo := phonetic.NewMemo()
		rep := dedupe.NewDetector(cfg, memo).Detect(people)
		e.logger.Debug("duplicate detection finished",
			"persons", len(people),
			"blocks", rep.Blocks,
			"compared", rep.Compared,
			"soundex_codes", memo.Len(),
		)

		printDedupe(rep)

		out := pipeline.DedupeReport{GeneratedAt: time.Now().UTC(), Persons: len(people), Report: rep}
		renderer := pipeline.NewRenderer()
		if dedupeJSON != "" {
			if err := renderer.RenderJSON(out, dedupeJSON); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", dedupeJSON)
		}
		if dedupeMD != "" {
			if err := renderer.RenderMarkdown(out, dedupeMD); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", dedupeMD)
		}
		return nil
	},
}

func printDedupe(rep dedupe.Report) {
	fmt.Printf("Possible duplicates: %d\n", len(rep.Candidates))
	if len(rep.Candidates) > 0 {
		rows := make([][]string, 0, len(rep.Candidates))
		for _, c := range rep.Candidates {
			rows = append(rows, []string{
				strconv.Itoa(c.Score),
				fmt.Sprintf("#%d %s", c.Person1.ID, c.Person1.Name),
				c.Person1.Birth,
				fmt.Sprintf("#%d %s", c.Person2.ID, c.Person2.Name),
				c.Person2.Birth,
				c.Reason,
			})
		}
		fmt.Println(renderTable(
			[]string{"Score", "Person 1", "Born", "Person 2", "Born", "Reason"},
			rows,
			[]columnAlignment{alignRight},
		))
	}

	if len(rep.SurnameVariants) > 0 {
		fmt.Printf("\nSurname variants: %d groups\n", len(rep.SurnameVariants))
		rows := make([][]string, 0, len(rep.SurnameVariants))
		for _, g := range rep.SurnameVariants {
			spellings := ""
			for i, v := range g.Variants {
				if i > 0 {
					spellings += ", "
				}
				spellings += fmt.Sprintf("%s (%d)", v.Surname, v.Count)
			}
			rows = append(rows, []string{g.Code, strconv.Itoa(g.Total), spellings})
		}
		fmt.Println(renderTable([]string{"Soundex", "Records", "Spellings"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	if len(rep.Anomalies) > 0 {
		fmt.Printf("\nDate anomalies: %d\n", len(rep.Anomalies))
		rows := make([][]string, 0, len(rep.Anomalies))
		for _, a := range rep.Anomalies {
			rows = append(rows, []string{a.Severity, fmt.Sprintf("#%d %s", a.Person.ID, a.Person.Name), a.Description})
		}
		fmt.Println(renderTable([]string{"Severity", "Person", "Problem"}, rows, nil))
	}
}

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().IntVar(&dedupeLimit, "limit", 100, "maximum duplicate candidates")
	dedupeCmd.Flags().StringVar(&dedupeJSON, "json", "", "write the report as JSON to this path")
	dedupeCmd.Flags().StringVar(&dedupeMD, "md", "", "write the report as Markdown to this path")
}
