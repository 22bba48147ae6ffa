package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/xhad/finsight/internal/app"
	"github.com/xhad/finsight/internal/logger"
	"github.com/xhad/finsight/pkg/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "finsight",
		Short: "Financial document loaders and semantic search",
		Long: `finsight loads SEC filings, earnings call transcripts and news for a ticker,
indexes them as embeddings and answers similarity searches and questions over them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newLoadCmd(opts),
		newIngestCmd(opts),
		newSearchCmd(opts),
		newAskCmd(opts),
	)
	return cmd
}

// buildApp loads configuration and wires every component. Logs go to stderr
// so command output stays clean.
func (o *rootOptions) buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	lg := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	return app.New(ctx, cfg, lg)
}
