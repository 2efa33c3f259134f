package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sats_display/internal/api"
	"sats_display/internal/app"

	"github.com/spf13/cobra"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Graceful Shutdown Context
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b := app.NewBootstrap(*configPath)
			if err := b.Initialize(ctx); err != nil {
				slog.Error("Bootstrapping failed", slog.Any("error", err))
				return err
			}
			defer b.Close()

			go b.SyncAssets(ctx)
			b.Rates.Start(ctx, b.Config.RefreshInterval())

			srv := api.NewServer(b.Config.HTTP.Listen, b.Router(), b.Logger)
			if err := srv.Run(ctx); err != nil {
				b.Logger.Error("HTTP server failed", slog.Any("error", err))
				return err
			}

			b.Logger.Info("Shutting down gracefully")
			return nil
		},
	}
}
