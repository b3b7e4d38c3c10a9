package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/david-andreasson/novareport/internal/payment"
	"github.com/david-andreasson/novareport/internal/state"
)

func newSubscriptionCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "subscription",
		Short: "Show the current subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runSubscription(cmd.Context(), a)
		},
	}
}

func runSubscription(ctx context.Context, a *app) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.loadSubscription(ctx); err != nil {
		return a.handleAuthError(err)
	}
	sub := a.store.Snapshot().Subscription

	if a.format == "json" {
		return a.printJSON(sub.Info)
	}
	if !sub.HasAccess() {
		fmt.Fprintln(a.out, "Ingen aktiv prenumeration. Köp en med 'novareport subscribe'.")
		return nil
	}
	fmt.Fprintln(a.out, "Prenumerationen är aktiv.")
	if d := sub.Info.Detail; d != nil {
		fmt.Fprintf(a.out, "  Plan:    %s\n", d.Plan)
		fmt.Fprintf(a.out, "  Status:  %s\n", d.Status)
		fmt.Fprintf(a.out, "  Start:   %s\n", formatTime(d.StartAt))
		fmt.Fprintf(a.out, "  Slut:    %s\n", formatTime(d.EndAt))
	}
	return nil
}

func (a *app) loadSubscription(ctx context.Context) error {
	info, err := a.client.Subscription(ctx)
	if err != nil {
		a.store.Dispatch(state.SubscriptionFailed{Err: err})
		return err
	}
	a.store.Dispatch(state.SubscriptionLoaded{Info: info})
	return nil
}

type subscribeOpts struct {
	plan   string
	method string
	noWait bool
}

func newSubscribeCmd(g *globalFlags) *cobra.Command {
	var opts subscribeOpts

	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Buy a subscription and wait for the payment",
		Long: `Creates a payment for the chosen plan, prints how to pay it and polls
the payment status until it is confirmed, fails or times out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			return runSubscribe(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.plan, "plan", "monthly", "Plan: monthly or yearly")
	cmd.Flags().StringVar(&opts.method, "method", "xmr", "Payment method: xmr or card")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Create the payment and exit without polling")

	return cmd
}

func (a *app) newCheckout() *payment.Checkout {
	return &payment.Checkout{
		Gateways: a.client.Gateways(),
		NewPoller: func(f payment.StatusFetcher) *payment.Poller {
			p := payment.NewPoller(f, a.lggr.Named("poller"))
			p.Interval = a.cfg.Payment.PollInterval
			p.MaxAttempts = a.cfg.Payment.MaxAttempts
			return p
		},
		Refresh: a.loadSubscription,
		OnChange: func(s payment.State) {
			a.store.Dispatch(state.PaymentChanged{State: s})
		},
		Logger: a.lggr.Named("checkout"),
	}
}

func runSubscribe(ctx context.Context, a *app, opts subscribeOpts) error {
	plan, err := payment.LookupPlan(opts.plan)
	if err != nil {
		return err
	}
	method, err := payment.ParseMethod(opts.method)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	unsubscribe := a.store.Subscribe(func(s state.State, act state.Action) {
		if _, ok := act.(state.PaymentChanged); ok {
			a.lggr.Debugw("checkout", "phase", s.Payment.Phase.String())
		}
	})
	defer unsubscribe()

	checkout := a.newCheckout()
	inv, err := checkout.SelectPlan(ctx, plan, method)
	if err != nil {
		return a.handleAuthError(err)
	}

	if a.format == "json" && opts.noWait {
		return a.printJSON(inv)
	}
	printInvoice(a, plan, inv)
	if opts.noWait {
		fmt.Fprintf(a.out, "\nKontrollera status med: novareport payment-status %s --method %s\n", inv.PaymentID, method)
		return nil
	}

	fmt.Fprintf(a.errOut, "Väntar på betalningen (kontrollerar var %s)...\n", a.cfg.Payment.PollInterval)
	res, err := checkout.Await(ctx)
	if err != nil {
		return err
	}

	if a.format == "json" {
		return a.printJSON(a.store.Snapshot().Payment)
	}
	switch res.Outcome {
	case payment.OutcomeConfirmed:
		fmt.Fprintln(a.out, payment.ConfirmedMessage)
		if sub := a.store.Snapshot().Subscription; sub.HasAccess() && sub.Info.Detail != nil {
			fmt.Fprintf(a.out, "Giltig till %s\n", formatTime(sub.Info.Detail.EndAt))
		}
		return nil
	case payment.OutcomeCancelled:
		return fmt.Errorf("avbruten; kontrollera senare med 'novareport payment-status %s --method %s'", inv.PaymentID, method)
	default:
		return errors.New(res.Message)
	}
}

func printInvoice(a *app, plan payment.Plan, inv *payment.Invoice) {
	fmt.Fprintf(a.out, "Betalning skapad för %s (%d dagar)\n", plan.Name, plan.Days)
	fmt.Fprintf(a.out, "  Betalnings-id: %s\n", inv.PaymentID)

	switch inv.Method {
	case payment.MethodXMR:
		uri := payment.MoneroURI(inv.Address, inv.AmountXMR)
		fmt.Fprintf(a.out, "  Belopp:        %s XMR\n", strconv.FormatFloat(inv.AmountXMR, 'f', -1, 64))
		fmt.Fprintf(a.out, "  Adress:        %s\n", inv.Address)
		fmt.Fprintf(a.out, "  Betallänk:     %s\n", uri)
		fmt.Fprintf(a.out, "  QR-kod:        %s\n", payment.QRCodeURL(uri))
		if !inv.ExpiresAt.IsZero() {
			fmt.Fprintf(a.out, "  Giltig till:   %s\n", formatTime(inv.ExpiresAt))
		}
	case payment.MethodCard:
		fmt.Fprintf(a.out, "  Belopp:        %.2f %s\n", inv.AmountFiat, inv.CurrencyFiat)
		fmt.Fprintln(a.out, "  Slutför kortbetalningen i webbläsaren.")
	}
}

type paymentStatusOpts struct {
	paymentID string
	method    string
}

func newPaymentStatusCmd(g *globalFlags) *cobra.Command {
	var opts paymentStatusOpts

	cmd := &cobra.Command{
		Use:   "payment-status <payment-id>",
		Short: "Show the status of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			opts.paymentID = args[0]
			return runPaymentStatus(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.method, "method", "xmr", "Payment method: xmr or card")

	return cmd
}

func runPaymentStatus(ctx context.Context, a *app, opts paymentStatusOpts) error {
	method, err := payment.ParseMethod(opts.method)
	if err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	fetch := a.client.PaymentStatus
	if method == payment.MethodCard {
		fetch = a.client.StripePaymentStatus
	}
	st, err := fetch(ctx, opts.paymentID)
	if err != nil {
		return a.handleAuthError(err)
	}

	if a.format == "json" {
		return a.printJSON(st)
	}
	fmt.Fprintf(a.out, "Betalning %s: %s\n", st.PaymentID, st.Status)
	fmt.Fprintf(a.out, "  Skapad:     %s\n", formatTime(st.CreatedAt))
	if st.ConfirmedAt != nil {
		fmt.Fprintf(a.out, "  Bekräftad:  %s\n", formatTime(*st.ConfirmedAt))
	}
	return nil
}
