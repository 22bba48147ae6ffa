package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/finsight/internal/models"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		minScore float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents by similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Retriever.Search(cmd.Context(), args[0], limit, minScore)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if asJSON {
				for i := range results {
					results[i].Document.Embedding = nil
				}
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal results: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	cmd.Flags().Float64Var(&minScore, "min-score", 0.5, "minimum similarity score")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, results []models.SearchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No results found.")
		return
	}

	for i, r := range results {
		label := r.Document.ID
		if t, ok := r.Document.Metadata["title"].(string); ok && t != "" {
			label = t
		}
		color.New(color.FgCyan).Fprintf(out, "[%d] %s (%.3f)\n", i+1, label, r.Score)
		if src, ok := r.Document.Metadata["source"].(string); ok {
			fmt.Fprintf(out, "    Source: %s\n", src)
		}
		fmt.Fprintf(out, "    %s\n\n", snippet(r.Document.Content, 200))
	}
}
