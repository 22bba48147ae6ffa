package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xhad/finsight/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			a, err := opts.buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sc := a.Config.Server
			if addr != "" {
				sc.Addr = addr
			}

			srv, err := server.New(server.Config{
				Addr:            sc.Addr,
				ReadTimeout:     sc.ReadTimeout,
				WriteTimeout:    sc.WriteTimeout,
				RequestTimeout:  sc.RequestTimeout,
				ShutdownTimeout: sc.ShutdownTimeout,
				Retriever:       a.Retriever,
				Pipeline:        a.Pipeline,
				Chat:            a.Chat,
				Logger:          a.Logger,
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
