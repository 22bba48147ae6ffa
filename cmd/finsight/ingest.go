package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/finsight/pkg/ingest"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "ingest <loader> <symbol>",
		Short: "Load, chunk and index documents for a symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := flags.request(args)
			color.New(color.FgBlue).Fprintf(cmd.OutOrStdout(), "Loading %s documents for %s\n", req.Kind, req.Symbol)

			var bar *progressbar.ProgressBar
			report, err := a.Pipeline.Ingest(cmd.Context(), req, func(p ingest.Progress) {
				if bar == nil {
					bar = getProgressBar(cmd.ErrOrStderr(), p.Total, " Indexing chunks")
				}
				bar.Set(p.Done)
			})
			if bar != nil {
				bar.Finish()
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return fmt.Errorf("ingest failed after %d chunks: %w", report.Indexed, err)
			}

			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"✓ Indexed %d chunks from %d documents (%d already present)\n",
				report.Indexed, report.Loaded, report.Skipped)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
