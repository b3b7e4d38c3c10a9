package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/david-andreasson/novareport/internal/payment"
)

// TokenResponse is returned by login and register.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (t *TokenResponse) Validate() error {
	if t.AccessToken == "" {
		return errors.New("accessToken is empty")
	}
	return nil
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UserProfile is the signed-in user.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (p *UserProfile) Validate() error {
	if p.ID == "" || p.Email == "" {
		return errors.New("profile is missing id or email")
	}
	return nil
}

// Settings are the user's account preferences.
type Settings struct {
	Locale           string `json:"locale"`
	Timezone         string `json:"timezone"`
	MarketingOptIn   bool   `json:"marketingOptIn"`
	ReportEmailOptIn bool   `json:"reportEmailOptIn"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// DefaultSettings mirrors the defaults of a freshly registered account.
func DefaultSettings() Settings {
	return Settings{
		Locale:           "sv-SE",
		Timezone:         "Europe/Stockholm",
		ReportEmailOptIn: true,
	}
}

func (s *Settings) Validate() error {
	if s.Locale == "" || s.Timezone == "" {
		return errors.New("locale and timezone are required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", s.Timezone)
	}
	return nil
}

// SubscriptionDetail describes an active subscription.
type SubscriptionDetail struct {
	UserID  string    `json:"userId"`
	Plan    string    `json:"plan"`
	Status  string    `json:"status"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

func (s *SubscriptionDetail) Validate() error {
	if s.Plan == "" || s.Status == "" {
		return errors.New("subscription is missing plan or status")
	}
	if !s.EndAt.IsZero() && s.EndAt.Before(s.StartAt) {
		return errors.New("subscription ends before it starts")
	}
	return nil
}

// SubscriptionInfo combines the access check with the optional detail.
type SubscriptionInfo struct {
	HasAccess bool                `json:"hasAccess"`
	Detail    *SubscriptionDetail `json:"detail"`
}

type accessResponse struct {
	HasAccess *bool `json:"hasAccess"`
}

func (a *accessResponse) Validate() error {
	if a.HasAccess == nil {
		return errors.New("hasAccess is missing")
	}
	return nil
}

// CreatedPayment is a Monero payment awaiting funds.
type CreatedPayment struct {
	PaymentID      string    `json:"paymentId"`
	PaymentAddress string    `json:"paymentAddress"`
	AmountXMR      string    `json:"amountXmr"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (p *CreatedPayment) Validate() error {
	if p.PaymentID == "" || p.PaymentAddress == "" {
		return errors.New("payment is missing id or address")
	}
	if _, err := strconv.ParseFloat(p.AmountXMR, 64); err != nil {
		return fmt.Errorf("amountXmr %q is not a number", p.AmountXMR)
	}
	return nil
}

// Invoice converts the response into the checkout's representation.
func (p *CreatedPayment) Invoice() *payment.Invoice {
	amount, _ := strconv.ParseFloat(p.AmountXMR, 64)
	return &payment.Invoice{
		PaymentID: p.PaymentID,
		Method:    payment.MethodXMR,
		Address:   p.PaymentAddress,
		AmountXMR: amount,
		ExpiresAt: p.ExpiresAt,
	}
}

// PaymentStatus is the status of a Monero or card payment.
type PaymentStatus struct {
	PaymentID   string         `json:"paymentId"`
	Status      payment.Status `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	ConfirmedAt *time.Time     `json:"confirmedAt"`
}

func (s *PaymentStatus) Validate() error {
	if s.PaymentID == "" {
		return errors.New("paymentId is empty")
	}
	if !s.Status.Valid() {
		return fmt.Errorf("unknown payment status %q", s.Status)
	}
	return nil
}

// StripePaymentIntent is a card payment awaiting confirmation.
type StripePaymentIntent struct {
	PaymentID    string  `json:"paymentId"`
	ClientSecret string  `json:"clientSecret"`
	AmountFiat   float64 `json:"amountFiat"`
	CurrencyFiat string  `json:"currencyFiat"`
}

func (p *StripePaymentIntent) Validate() error {
	if p.PaymentID == "" || p.ClientSecret == "" {
		return errors.New("payment intent is missing id or client secret")
	}
	return nil
}

// Invoice converts the response into the checkout's representation.
func (p *StripePaymentIntent) Invoice() *payment.Invoice {
	return &payment.Invoice{
		PaymentID:    p.PaymentID,
		Method:       payment.MethodCard,
		ClientSecret: p.ClientSecret,
		AmountFiat:   p.AmountFiat,
		CurrencyFiat: p.CurrencyFiat,
	}
}

// DailyReport is the latest generated market report.
type DailyReport struct {
	ID         string    `json:"id,omitempty"`
	ReportID   string    `json:"reportId,omitempty"`
	ReportDate string    `json:"reportDate"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}

func (r *DailyReport) Validate() error {
	if r.ReportDate == "" {
		return errors.New("reportDate is empty")
	}
	if _, err := r.Date(); err != nil {
		return err
	}
	return nil
}

// Date parses ReportDate, which is either a plain date or a timestamp.
func (r *DailyReport) Date() (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, r.ReportDate); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, r.ReportDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reportDate %q", r.ReportDate)
	}
	return t, nil
}

// Timestamp is the best available moment to label the report with.
func (r *DailyReport) Timestamp() time.Time {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	t, _ := r.Date()
	return t
}

// Key returns the report's identifier, preferring reportId.
func (r *DailyReport) Key() string {
	if r.ReportID != "" {
		return r.ReportID
	}
	return r.ID
}
