// Package main provides the novareport CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	output     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "novareport",
		Short: "Read NovaReport market reports and manage your subscription",
		Long: `novareport signs in to NovaReport, shows the latest daily market report,
and buys or inspects a subscription paid with Monero or card.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Path to config file (default: discover .novareport/config.yaml)")
	pf.StringVar(&g.apiURL, "api-url", "", "Backend base URL (overrides config)")
	pf.StringVar(&g.output, "output", "", "Output format: text, json or html (overrides config)")
	pf.BoolVar(&g.verbose, "verbose", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		newLoginCmd(g),
		newRegisterCmd(g),
		newLogoutCmd(g),
		newWhoamiCmd(g),
		newProfileCmd(g),
		newSettingsCmd(g),
		newSubscriptionCmd(g),
		newSubscribeCmd(g),
		newPaymentStatusCmd(g),
		newReportCmd(g),
		newDiscordCmd(g),
		newAdminCmd(g),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
