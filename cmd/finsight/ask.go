package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/finsight/pkg/llm"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		limit    int
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Chat == nil {
				return errors.New("chat engine is disabled (llm.disabled)")
			}

			out := cmd.OutOrStdout()
			spinner := getSpinner(cmd.ErrOrStderr(), " Searching documents...")
			results, err := a.Retriever.Search(cmd.Context(), args[0], limit, minScore)
			spinner.Finish()
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			color.New(color.FgCyan).Fprint(out, "Assistant: ")
			_, err = a.Chat.ChatStream(cmd.Context(), args[0], results, func(chunk string) error {
				_, err := fmt.Fprint(out, chunk)
				return err
			})
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			if sources := llm.FormatSources(results); sources != "" {
				color.New(color.FgBlue).Fprintln(out, sources)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of documents to use as context")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum similarity score for context documents")
	return cmd
}
