package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/david-andreasson/novareport/internal/payment"
)

// CreateStripeIntent starts a card payment for plan.
func (c *Client) CreateStripeIntent(ctx context.Context, plan payment.Plan) (*StripePaymentIntent, error) {
	var intent StripePaymentIntent
	body := map[string]string{"plan": plan.Name}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/payments-stripe/create-intent", body, "Kunde inte skapa Stripe-betalning", &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// StripePaymentStatus returns the status of a card payment.
func (c *Client) StripePaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var st PaymentStatus
	path := "/api/payments-stripe/" + url.PathEscape(paymentID) + "/status"
	if err := c.getJSON(ctx, path, "Kunde inte hämta betalningsstatus", &st); err != nil {
		return nil, err
	}
	return &st, nil
}
