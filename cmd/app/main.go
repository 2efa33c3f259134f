package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "sats",
		Short:        "Sats display - satoshi prices for a shop",
		Long:         `Serves shop prices with their satoshi equivalent, using a BTCPay Server store as the rate source.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newQuoteCommand(&configPath),
		newSettingsCommand(&configPath),
		newCacheCommand(&configPath),
	)
	return rootCmd
}
