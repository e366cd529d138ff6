package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lineage/internal/model"
	"github.com/ppiankov/lineage/internal/reconcile"
	"github.com/ppiankov/lineage/internal/store"
)

var (
	matchUnverified bool
	matchPerson     int64
	matchDocument   int64
	matchMethod     string
	matchMinConf    float64
	matchLimit      int
	linkSnippet     string
)

// matchCmd groups the review commands
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Review document matches",
	Long: `Review the links between documents and persons.

Automatic passes only ever add matches or raise their confidence. A match
disappears only when it is rejected here.`,
}

var matchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List matches, highest confidence first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		matches, err := e.store.ListMatches(cmd.Context(), store.MatchFilter{
			DocumentID:     matchDocument,
			PersonID:       matchPerson,
			Method:         model.Method(matchMethod),
			UnverifiedOnly: matchUnverified,
			MinConfidence:  matchMinConf,
			Limit:          matchLimit,
		})
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matches.")
			return nil
		}

		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			verified := ""
			if m.Verified {
				verified = "✓"
			}
			rows = append(rows, []string{
				strconv.FormatInt(m.ID, 10),
				fmt.Sprintf("%.3f", m.Confidence),
				string(m.Method),
				verified,
				fmt.Sprintf("#%d %s", m.PersonID, m.PersonName),
				fmt.Sprintf("#%d %s", m.DocumentID, m.Filename),
				m.DocType,
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Conf", "Method", "Verified", "Person", "Document", "Type"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

var matchVerifyCmd = &cobra.Command{
	Use:   "verify <match-id>",
	Short: "Confirm a match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withReconciler(cmd, func(ctx context.Context, r *reconcile.Reconciler) error {
			if err := r.Verify(ctx, id); err != nil {
				return err
			}
			fmt.Printf("✓ Verified match %d\n", id)
			return nil
		})
	},
}

var matchRejectCmd = &cobra.Command{
	Use:   "reject <match-id>",
	Short: "Delete a wrong match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withReconciler(cmd, func(ctx context.Context, r *reconcile.Reconciler) error {
			if err := r.Reject(ctx, id); err != nil {
				return err
			}
			fmt.Printf("✓ Rejected match %d\n", id)
			return nil
		})
	},
}

var matchLinkCmd = &cobra.Command{
	Use:   "link <document-id> <person-id>",
	Short: "Link a document to a person by hand",
	Long:  `Record a manual match: confidence 1.0, verified. Automatic passes never replace it.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, err := parseID(args[0])
		if err != nil {
			return err
		}
		personID, err := parseID(args[1])
		if err != nil {
			return err
		}
		return withReconciler(cmd, func(ctx context.Context, r *reconcile.Reconciler) error {
			id, err := r.Link(ctx, docID, personID, linkSnippet)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Linked document %d to person %d (match %d)\n", docID, personID, id)
			return nil
		})
	},
}

func withReconciler(cmd *cobra.Command, fn func(ctx context.Context, r *reconcile.Reconciler) error) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	return e.withWriter(cmd.Context(), func(ctx context.Context) error {
		return fn(ctx, reconcile.New(e.store))
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchListCmd, matchVerifyCmd, matchRejectCmd, matchLinkCmd)

	matchListCmd.Flags().BoolVar(&matchUnverified, "unverified", false, "only unverified matches")
	matchListCmd.Flags().Int64Var(&matchPerson, "person", 0, "only matches for this person id")
	matchListCmd.Flags().Int64Var(&matchDocument, "document", 0, "only matches for this document id")
	matchListCmd.Flags().StringVar(&matchMethod, "method", "", "only matches made by this method (filename, ocr_auto, vision_auto, manual)")
	matchListCmd.Flags().Float64Var(&matchMinConf, "min-confidence", 0, "minimum confidence")
	matchListCmd.Flags().IntVar(&matchLimit, "limit", 50, "maximum rows")

	matchLinkCmd.Flags().StringVar(&linkSnippet, "note", "", "snippet stored with the manual match")
}
