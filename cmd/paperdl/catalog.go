// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperdl/internal/catalog"
	"github.com/pdiddy/paperdl/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List recorded download outcomes",
	Long: `Catalog queries the SQLite history written by fetch. Each target path
appears once with its most recent outcome. Filter by category or outcome
(succeeded, skipped, failed).`,
	Args: cobra.NoArgs,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().String("category", "", "only show this category slug")
	catalogCmd.Flags().String("outcome", "", "only show this outcome: succeeded, skipped, or failed")
	catalogCmd.Flags().Int("limit", 0, "maximum rows (default 50)")
	catalogCmd.Flags().Bool("json", false, "output JSON")

	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	switch types.Outcome(outcome) {
	case "", types.OutcomeSucceeded, types.OutcomeSkipped, types.OutcomeFailed:
	default:
		return fmt.Errorf("unknown outcome %q (want succeeded, skipped, or failed)", outcome)
	}

	store, err := catalog.Open(types.CatalogConfig{Path: catalogPath()})
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.List(cmd.Context(), catalog.Filter{
		Category: category,
		Outcome:  types.Outcome(outcome),
		Limit:    limit,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-9s  %-4s  %-24s  %-50s  %s\n", "Outcome", "Year", "Category", "Title", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range rows {
		fmt.Fprintf(w, "%-9s  %-4s  %-24s  %-50s  %s\n",
			r.Outcome, r.Year, truncate(r.Category, 24), truncate(r.Title, 50), r.Error)
	}
	return nil
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
