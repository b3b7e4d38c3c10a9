package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/state"
)

func newProfileCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runProfile(cmd.Context(), a)
		},
	}
}

func runProfile(ctx context.Context, a *app) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	p, err := a.client.Profile(ctx)
	if err != nil {
		a.store.Dispatch(state.ProfileFailed{Err: err})
		return a.handleAuthError(err)
	}
	a.store.Dispatch(state.ProfileLoaded{Profile: p})

	if a.format == "json" {
		return a.printJSON(p)
	}
	fmt.Fprintf(a.out, "Namn:    %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(a.out, "E-post:  %s\n", p.Email)
	fmt.Fprintf(a.out, "Roll:    %s\n", firstNonEmpty(p.Role, "-"))
	return nil
}

type settingsOpts struct {
	settings api.Settings
}

func newSettingsCmd(g *globalFlags) *cobra.Command {
	opts := settingsOpts{settings: api.DefaultSettings()}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Save account settings",
		Long:  `Saves locale, timezone and email preferences. Flags that are not given keep the account defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runSettings(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.settings.Locale, "locale", opts.settings.Locale, "Locale, e.g. sv-SE")
	f.StringVar(&opts.settings.Timezone, "timezone", opts.settings.Timezone, "IANA timezone")
	f.BoolVar(&opts.settings.MarketingOptIn, "marketing", opts.settings.MarketingOptIn, "Receive marketing email")
	f.BoolVar(&opts.settings.ReportEmailOptIn, "report-email", opts.settings.ReportEmailOptIn, "Receive the daily report by email")
	f.BoolVar(&opts.settings.TwoFactorEnabled, "two-factor", opts.settings.TwoFactorEnabled, "Enable two-factor sign-in")

	return cmd
}

func runSettings(ctx context.Context, a *app, opts settingsOpts) error {
	if err := opts.settings.Validate(); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.client.UpdateSettings(ctx, opts.settings); err != nil {
		return a.handleAuthError(err)
	}
	if a.format == "json" {
		return a.printJSON(opts.settings)
	}
	fmt.Fprintln(a.out, "Inställningarna sparades.")
	printSettings(a, opts.settings)
	return nil
}

func printSettings(a *app, s api.Settings) {
	fmt.Fprintf(a.out, "  Språk:          %s\n", s.Locale)
	fmt.Fprintf(a.out, "  Tidszon:        %s\n", s.Timezone)
	fmt.Fprintf(a.out, "  Rapport via mejl: %s\n", yesNo(s.ReportEmailOptIn))
	fmt.Fprintf(a.out, "  Marknadsföring: %s\n", yesNo(s.MarketingOptIn))
	fmt.Fprintf(a.out, "  Tvåstegsinloggning: %s\n", yesNo(s.TwoFactorEnabled))
}
