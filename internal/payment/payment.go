// Package payment implements subscription checkout: plan selection,
// payment creation and bounded polling of the payment status until it
// reaches a terminal state.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the backend's view of a payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

// Plan is a subscription plan offered for purchase.
type Plan struct {
	Name      string  `json:"name"`
	AmountXMR float64 `json:"amountXmr"`
	Days      int     `json:"durationDays"`
}

var (
	PlanMonthly = Plan{Name: "monthly", AmountXMR: 0.01, Days: 30}
	PlanYearly  = Plan{Name: "yearly", AmountXMR: 0.50, Days: 365}
)

// Plans lists the purchasable plans in display order.
var Plans = []Plan{PlanMonthly, PlanYearly}

// LookupPlan returns the plan with the given name.
func LookupPlan(name string) (Plan, error) {
	for _, p := range Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("unknown plan %q (expected monthly or yearly)", name)
}

// Method selects the payment rail.
type Method string

const (
	MethodXMR  Method = "xmr"
	MethodCard Method = "card"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodXMR, MethodCard:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q (expected xmr or card)", s)
}

// Invoice is a created payment awaiting settlement. Address and AmountXMR
// are set for Monero payments; ClientSecret and the fiat fields for card
// payments.
type Invoice struct {
	PaymentID    string    `json:"paymentId"`
	Method       Method    `json:"method"`
	Address      string    `json:"paymentAddress,omitempty"`
	AmountXMR    float64   `json:"amountXmr,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
	ClientSecret string    `json:"clientSecret,omitempty"`
	AmountFiat   float64   `json:"amountFiat,omitempty"`
	CurrencyFiat string    `json:"currencyFiat,omitempty"`
}

// StatusFetcher queries the status of a payment.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, paymentID string) (Status, error)
}

// Gateway creates payments and reports their status for one method.
type Gateway interface {
	StatusFetcher
	CreatePayment(ctx context.Context, plan Plan) (*Invoice, error)
}

// User-facing messages for terminal outcomes.
const (
	FailedMessage    = "Betalningen misslyckades. Försök igen."
	ExpiredMessage   = "Betalningen tog för lång tid. Försök igen."
	ConfirmedMessage = "Din prenumeration är nu aktiv."
)

var (
	// ErrPaymentFailed is returned when the backend reports FAILED.
	ErrPaymentFailed = errors.New(FailedMessage)
	// ErrAlreadyPolling is returned when a poll session is already running
	// for the current purchase attempt.
	ErrAlreadyPolling = errors.New("payment status is already being polled")
	// ErrNoPayment is returned by Await when no payment has been created.
	ErrNoPayment = errors.New("no payment to await; select a plan first")
	// ErrSuperseded is returned when the purchase attempt was reset or
	// replaced while an operation was in flight.
	ErrSuperseded = errors.New("purchase attempt was replaced")
)
