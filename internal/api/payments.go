package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/david-andreasson/novareport/internal/payment"
)

// CreatePayment starts a Monero payment for plan.
func (c *Client) CreatePayment(ctx context.Context, plan payment.Plan) (*CreatedPayment, error) {
	body := map[string]string{
		"plan":      plan.Name,
		"amountXmr": strconv.FormatFloat(plan.AmountXMR, 'f', 2, 64),
	}
	var created CreatedPayment
	if err := c.sendJSON(ctx, http.MethodPost, "/api/payments/create", body, "Kunde inte skapa betalning", &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// PaymentStatus returns the status of a Monero payment.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var st PaymentStatus
	path := "/api/payments/" + url.PathEscape(paymentID) + "/status"
	if err := c.getJSON(ctx, path, "Kunde inte hämta betalningsstatus", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Gateway adapts the client to the checkout for the given method.
func (c *Client) Gateway(method payment.Method) (payment.Gateway, error) {
	switch method {
	case payment.MethodXMR:
		return moneroGateway{c}, nil
	case payment.MethodCard:
		return cardGateway{c}, nil
	}
	return nil, fmt.Errorf("unknown payment method %q", method)
}

// StatusFetcher adapts the client to the poller for the given method.
func (c *Client) StatusFetcher(method payment.Method) (payment.StatusFetcher, error) {
	return c.Gateway(method)
}

// Gateways returns a gateway for every supported method.
func (c *Client) Gateways() map[payment.Method]payment.Gateway {
	return map[payment.Method]payment.Gateway{
		payment.MethodXMR:  moneroGateway{c},
		payment.MethodCard: cardGateway{c},
	}
}

type moneroGateway struct{ c *Client }

func (g moneroGateway) CreatePayment(ctx context.Context, plan payment.Plan) (*payment.Invoice, error) {
	created, err := g.c.CreatePayment(ctx, plan)
	if err != nil {
		return nil, err
	}
	return created.Invoice(), nil
}

func (g moneroGateway) FetchStatus(ctx context.Context, paymentID string) (payment.Status, error) {
	st, err := g.c.PaymentStatus(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return st.Status, nil
}

type cardGateway struct{ c *Client }

func (g cardGateway) CreatePayment(ctx context.Context, plan payment.Plan) (*payment.Invoice, error) {
	intent, err := g.c.CreateStripeIntent(ctx, plan)
	if err != nil {
		return nil, err
	}
	return intent.Invoice(), nil
}

func (g cardGateway) FetchStatus(ctx context.Context, paymentID string) (payment.Status, error) {
	st, err := g.c.StripePaymentStatus(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return st.Status, nil
}
