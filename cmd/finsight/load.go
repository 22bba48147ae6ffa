package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/finsight/internal/models"
	"github.com/xhad/finsight/pkg/ingest"
	"github.com/xhad/finsight/pkg/loader"
)

type sourceFlags struct {
	filingType string
	limit      int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.filingType, "filing-type", "t", loader.FilingAnnual, "SEC form for the sec loader (10-K, 10-Q, 8-K)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", ingest.DefaultLimit, "maximum number of documents to load")
}

func (f *sourceFlags) request(args []string) ingest.Request {
	return ingest.Request{
		Kind:       args[0],
		Symbol:     args[1],
		FilingType: f.filingType,
		Limit:      f.limit,
	}
}

func loaderUsage() string {
	kinds := make([]string, 0, 3)
	for _, k := range loader.Kinds() {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var (
		flags  sourceFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "load <loader> <symbol>",
		Short: "Fetch documents for a symbol without indexing them",
		Long:  "Runs one loader (" + loaderUsage() + ") and prints what it found, newest first.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.Pipeline.Load(cmd.Context(), flags.request(args))
			if err != nil {
				return fmt.Errorf("load failed: %w", err)
			}

			if asJSON {
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal records: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printRecords(cmd, records)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "output records as JSON")
	return cmd
}

func printRecords(cmd *cobra.Command, records []models.Record) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No documents found.")
		return
	}

	for i, rec := range records {
		title := rec.Title
		if title == "" {
			title = strings.TrimSpace(rec.Symbol + " " + rec.FilingType)
		}
		color.New(color.FgCyan).Fprintf(out, "[%d] %s %s\n", i+1, rec.Date.Format("2006-01-02"), title)
		fmt.Fprintf(out, "    Source: %s\n", rec.Source)
		if rec.URL != "" {
			fmt.Fprintf(out, "    URL: %s\n", rec.URL)
		}
		fmt.Fprintf(out, "    %s\n\n", snippet(rec.Content, 160))
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
