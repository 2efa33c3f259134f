package main

import (
	"context"
	"fmt"

	"sats_display/internal/app"
	"sats_display/internal/domain"
	"sats_display/internal/engine"

	"github.com/spf13/cobra"
)

func newQuoteCommand(configPath *string) *cobra.Command {
	var (
		display string
		asHTML  bool
	)

	cmd := &cobra.Command{
		Use:   "quote <amount>",
		Short: "Print the satoshi price of an amount in the shop currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := engine.ParseAmount(args[0])
			if err != nil {
				return err
			}

			ctx := context.Background()
			b := app.NewBootstrap(*configPath)
			if err := b.Initialize(ctx); err != nil {
				return err
			}
			defer b.Close()

			price := b.Prices.Quote(ctx, amount, domain.ParseActiveDisplay(display))
			out := cmd.OutOrStdout()
			if asHTML {
				fmt.Fprintln(out, price.HTML)
				return nil
			}
			fmt.Fprintf(out, "%s\t%s\n", price.Original, b.Prices.Formatter().PlainText(price.Bitcoin))
			return nil
		},
	}

	cmd.Flags().StringVar(&display, "display", "bitcoin", "active display for toggle mode (bitcoin|original)")
	cmd.Flags().BoolVar(&asHTML, "html", false, "print the rendered HTML fragment")
	return cmd
}
