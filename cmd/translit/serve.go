package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/go-translit/internal/server"
	"github.com/example/go-translit/internal/translit"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transliteration HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			svc, err := translit.NewService(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, svc).Start(ctx)
		},
	}

	return cmd
}
