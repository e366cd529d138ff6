package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lineage/internal/confidence"
	"github.com/ppiankov/lineage/internal/model"
)

// boostCmd represents the boost command
var boostCmd = &cobra.Command{
	Use:   "boost",
	Short: "Recompute person confidence from linked documents",
	Long: `Boost adds a bonus to each linked person's base confidence for every
matched document (more for verified matches, capped) and reassigns the
confidence tier. The base is kept, so running boost again changes nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		return e.withWriter(cmd.Context(), func(ctx context.Context) error {
			tx, err := e.store.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			summary, err := confidence.NewAggregator(e.cfg.Confidence).Run(ctx, tx, e.logger)
			if err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}

			fmt.Printf("Linked persons: %d of %d, updated: %d\n", summary.Linked, summary.Persons, summary.Changed)
			rows := make([][]string, 0, 4)
			for _, tier := range []model.Tier{model.TierHigh, model.TierMedium, model.TierLow, model.TierSpeculative} {
				rows = append(rows, []string{string(tier), strconv.Itoa(summary.ByTier[tier])})
			}
			fmt.Println(renderTable([]string{"Tier", "Persons"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(boostCmd)
}
