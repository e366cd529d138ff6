package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and match statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.store.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(renderTable([]string{"Metric", "Count"}, [][]string{
			{"Documents", strconv.Itoa(st.Documents)},
			{"With OCR text", strconv.Itoa(st.WithOCR)},
			{"With vision text", strconv.Itoa(st.WithVision)},
			{"Persons", strconv.Itoa(st.Persons)},
			{"Linked persons", strconv.Itoa(st.LinkedPersons)},
			{"Matches", strconv.Itoa(st.Matches)},
			{"Verified matches", strconv.Itoa(st.Verified)},
		}, []columnAlignment{alignLeft, alignRight}))

		byMethod := make(map[string]int, len(st.ByMethod))
		for k, v := range st.ByMethod {
			byMethod[string(k)] = v
		}
		printCounts("Method", byMethod)
		printCounts("Document type", st.ByDocType)
		byTier := make(map[string]int, len(st.ByTier))
		for k, v := range st.ByTier {
			byTier[string(k)] = v
		}
		printCounts("Tier", byTier)
		return nil
	},
}

// printCounts prints a two column table sorted by count descending
func printCounts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	fmt.Println(renderTable([]string{label, "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent scan runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		runs, err := e.store.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No scan runs recorded.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			duration := "-"
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			rows = append(rows, []string{
				r.ID[:8],
				r.Pass,
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				duration,
				strconv.Itoa(r.Processed),
				strconv.Itoa(r.Matched),
				strconv.Itoa(r.Failures),
				string(r.Status),
				r.Error,
			})
		}
		fmt.Println(renderTable(
			[]string{"Run", "Pass", "Started", "Took", "Processed", "Matched", "Failed", "Status", "Error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs")
}
