package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lineage/internal/model"
)

// personCmd groups person table commands
var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage the person table",
}

var personImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import persons from a JSON array",
	Long: `Import persons exported from a family tree as a JSON array of objects with
given_name, surname, birth_date, birth_place, death_date, death_place,
sex, xref and confidence fields.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read persons: %w", err)
		}
		var people []model.Person
		if err := json.Unmarshal(data, &people); err != nil {
			return fmt.Errorf("parse persons: %w", err)
		}

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

			for _, p := range people {
				p.ID = 0
				if _, err := tx.AddPerson(ctx, p); err != nil {
					return err
				}
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			fmt.Printf("✓ Imported %d persons\n", len(people))
			return nil
		})
	},
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persons",
	Args:  cobra.NoArgs,
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
		rows := make([][]string, 0, len(people))
		for _, p := range people {
			rows = append(rows, []string{
				strconv.FormatInt(p.ID, 10),
				p.FullName(),
				p.BirthDate,
				p.DeathDate,
				strconv.Itoa(p.Confidence),
				string(p.Tier),
			})
		}
		fmt.Println(renderTable(
			[]string{"ID", "Name", "Born", "Died", "Confidence", "Tier"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(personCmd)
	personCmd.AddCommand(personImportCmd, personListCmd)
}
