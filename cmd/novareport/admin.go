package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/internal/archive"
)

func newAdminCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator commands",
		Long:  `Administrator commands. They require a session with the ADMIN role.`,
	}

	// adminRun wraps fn with app setup and the admin role check.
	adminRun := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			if err := a.requireAdmin(); err != nil {
				return err
			}
			return a.handleAuthError(fn(cmd.Context(), a, args))
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "metrics",
			Short: "Show service metrics",
			RunE:  adminRun(runAdminMetrics),
		},
		&cobra.Command{
			Use:   "user <email>",
			Short: "Look up a user with subscription and last payment",
			Args:  cobra.ExactArgs(1),
			RunE:  adminRun(runAdminUser),
		},
		&cobra.Command{
			Use:   "anonymize <user-id>",
			Short: "Anonymize a user's personal data",
			Args:  cobra.ExactArgs(1),
			RunE:  adminRun(runAdminAnonymize),
		},
		newAdminUserSettingsCmd(adminRun),
		newAdminResendWelcomeCmd(adminRun),
		newAdminTestReportCmd(adminRun),
		&cobra.Command{
			Use:   "run-report",
			Short: "Generate the daily report now",
			RunE: adminRun(func(ctx context.Context, a *app, _ []string) error {
				if err := a.client.RunDailyReport(ctx); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Daglig rapport startad.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "discord",
			Short: "Show the Discord invite configuration",
			RunE:  adminRun(runAdminDiscord),
		},
	)

	return cmd
}

type adminRunner func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func runAdminMetrics(ctx context.Context, a *app, _ []string) error {
	m, err := a.client.Metrics(ctx)
	if err != nil {
		return err
	}
	if a.format == "json" {
		return a.printJSON(m)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Användare totalt\t%d\n", m.Accounts.TotalUsers)
	fmt.Fprintf(tw, "Aktiva användare\t%d\n", m.Accounts.ActiveUsers)
	fmt.Fprintf(tw, "Inloggningar ok/fel\t%d/%d\n", m.Accounts.Logins.Success, m.Accounts.Logins.InvalidCredentials+m.Accounts.Logins.Error)
	fmt.Fprintf(tw, "Aktiva prenumerationer\t%d\n", m.Subscriptions.ActiveSubscriptions)
	fmt.Fprintf(tw, "Betalningar skapade\t%d\n", m.Payments.Created.Success)
	fmt.Fprintf(tw, "Betalningar bekräftade\t%d\n", m.Payments.Confirmed.Success)
	fmt.Fprintf(tw, "Dagliga mejl skickade\t%d\n", m.Notifications.DailyEmails.Success)
	latest := "-"
	if m.Notifications.LatestReportDate != nil {
		latest = *m.Notifications.LatestReportDate
	}
	fmt.Fprintf(tw, "Senaste rapport\t%s (mejlad: %s)\n", latest, yesNo(m.Notifications.LatestReportEmailSent))
	return tw.Flush()
}

type adminUserView struct {
	User         *api.AdminUserDetails   `json:"user"`
	Subscription *api.SubscriptionDetail `json:"subscription"`
	LastPayment  *api.AdminPayment       `json:"lastPayment"`
}

func runAdminUser(ctx context.Context, a *app, args []string) error {
	u, err := a.client.FindUserByEmail(ctx, args[0])
	if err != nil {
		return err
	}
	view := adminUserView{User: u}
	if view.Subscription, err = a.client.UserSubscription(ctx, u.ID); err != nil {
		return err
	}
	if view.LastPayment, err = a.client.UserLastPayment(ctx, u.ID); err != nil {
		return err
	}

	if a.format == "json" {
		return a.printJSON(view)
	}
	printAdminUser(a, u)
	if s := view.Subscription; s != nil {
		fmt.Fprintf(a.out, "Prenumeration: %s (%s) %s till %s\n", s.Plan, s.Status, formatTime(s.StartAt), formatTime(s.EndAt))
	} else {
		fmt.Fprintln(a.out, "Prenumeration: ingen")
	}
	if p := view.LastPayment; p != nil {
		fmt.Fprintf(a.out, "Senaste betalning: %s %s XMR (%s) %s\n", p.Plan, p.AmountXMR, p.Status, formatTime(p.CreatedAt))
	} else {
		fmt.Fprintln(a.out, "Senaste betalning: ingen")
	}
	return nil
}

func printAdminUser(a *app, u *api.AdminUserDetails) {
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil {
		name += " " + *u.LastName
	}
	fmt.Fprintf(a.out, "Användare %s\n", u.ID)
	fmt.Fprintf(a.out, "  E-post:  %s\n", u.Email)
	fmt.Fprintf(a.out, "  Namn:    %s\n", firstNonEmpty(name, "-"))
	fmt.Fprintf(a.out, "  Roll:    %s\n", u.Role)
	fmt.Fprintf(a.out, "  Aktiv:   %s\n", yesNo(u.Active))
	fmt.Fprintf(a.out, "  Skapad:  %s\n", formatTime(u.CreatedAt))
	printSettings(a, u.Settings)
}

func runAdminAnonymize(ctx context.Context, a *app, args []string) error {
	u, err := a.client.AnonymizeUser(ctx, args[0])
	if err != nil {
		return err
	}
	if a.format == "json" {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "Användare %s har anonymiserats.\n", u.ID)
	return nil
}

func newAdminUserSettingsCmd(adminRun adminRunner) *cobra.Command {
	s := api.DefaultSettings()

	cmd := &cobra.Command{
		Use:   "user-settings <user-id>",
		Short: "Save a user's settings",
		Args:  cobra.ExactArgs(1),
		RunE: adminRun(func(ctx context.Context, a *app, args []string) error {
			if err := s.Validate(); err != nil {
				return err
			}
			u, err := a.client.UpdateUserSettings(ctx, args[0], s)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return a.printJSON(u)
			}
			fmt.Fprintln(a.out, "Inställningarna sparades.")
			printAdminUser(a, u)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&s.Locale, "locale", s.Locale, "Locale, e.g. sv-SE")
	f.StringVar(&s.Timezone, "timezone", s.Timezone, "IANA timezone")
	f.BoolVar(&s.MarketingOptIn, "marketing", s.MarketingOptIn, "Receive marketing email")
	f.BoolVar(&s.ReportEmailOptIn, "report-email", s.ReportEmailOptIn, "Receive the daily report by email")
	f.BoolVar(&s.TwoFactorEnabled, "two-factor", s.TwoFactorEnabled, "Enable two-factor sign-in")

	return cmd
}

func newAdminResendWelcomeCmd(adminRun adminRunner) *cobra.Command {
	var firstName string

	cmd := &cobra.Command{
		Use:   "resend-welcome <email>",
		Short: "Send the welcome email again",
		Args:  cobra.ExactArgs(1),
		RunE: adminRun(func(ctx context.Context, a *app, args []string) error {
			var name *string
			if firstName != "" {
				name = &firstName
			}
			if err := a.client.ResendWelcomeEmail(ctx, args[0], name); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Välkomstmejl skickat till %s.\n", args[0])
			return nil
		}),
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "First name used in the greeting")

	return cmd
}

func newAdminTestReportCmd(adminRun adminRunner) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "test-report <email>",
		Short: "Email a daily report to one address",
		Args:  cobra.ExactArgs(1),
		RunE: adminRun(func(ctx context.Context, a *app, args []string) error {
			if date != "" && !archive.ValidDate(date) {
				return errors.New("--date must be YYYY-MM-DD")
			}
			if err := a.client.SendTestReport(ctx, args[0], date); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Testrapport skickad till %s.\n", args[0])
			return nil
		}),
	}

	cmd.Flags().StringVar(&date, "date", "", "Report date (YYYY-MM-DD); default is the latest report")

	return cmd
}

func runAdminDiscord(ctx context.Context, a *app, _ []string) error {
	d, err := a.client.DiscordInfo(ctx)
	if err != nil {
		return err
	}
	if a.format == "json" {
		return a.printJSON(d)
	}
	if !d.Configured || d.InviteURL == nil {
		fmt.Fprintln(a.out, "Discord-inbjudan är inte konfigurerad.")
		return nil
	}
	fmt.Fprintf(a.out, "Discord-inbjudan: %s\n", *d.InviteURL)
	return nil
}
