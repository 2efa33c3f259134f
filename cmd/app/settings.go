package main

import (
	"context"
	"fmt"

	"sats_display/internal/app"
	"sats_display/internal/service"

	"github.com/spf13/cobra"
)

func newSettingsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change stored settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [key]",
			Short: "Print effective settings",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBootstrap(*configPath, func(ctx context.Context, b *app.Bootstrap) error {
					values := b.Settings.Current().Values()
					out := cmd.OutOrStdout()
					if len(args) == 1 {
						v, ok := values[args[0]]
						if !ok {
							return fmt.Errorf("unknown setting %q", args[0])
						}
						fmt.Fprintln(out, v)
						return nil
					}
					for _, k := range service.SettingKeys {
						fmt.Fprintf(out, "%s=%s\n", k, values[k])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Validate and store a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBootstrap(*configPath, func(ctx context.Context, b *app.Bootstrap) error {
					_, err := b.Settings.Update(ctx, map[string]string{args[0]: args[1]})
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "reset <key>...",
			Short: "Drop stored overrides so keys fall back to config defaults",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBootstrap(*configPath, func(ctx context.Context, b *app.Bootstrap) error {
					return b.Settings.Reset(ctx, args...)
				})
			},
		},
	)
	return cmd
}

func newCacheCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rate cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Invalidate the cached rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBootstrap(*configPath, func(ctx context.Context, b *app.Bootstrap) error {
				return b.Rates.Invalidate(ctx)
			})
		},
	})
	return cmd
}

func withBootstrap(configPath string, fn func(context.Context, *app.Bootstrap) error) error {
	ctx := context.Background()
	b := app.NewBootstrap(configPath)
	if err := b.Initialize(ctx); err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}
