package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// AccountsMetrics reports user and login counters from the accounts service.
type AccountsMetrics struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	Logins      struct {
		Success                         int64   `json:"success"`
		InvalidCredentials              int64   `json:"invalidCredentials"`
		Error                           int64   `json:"error"`
		MeanLatencySuccessMs            float64 `json:"meanLatencySuccessMs"`
		MeanLatencyInvalidCredentialsMs float64 `json:"meanLatencyInvalidCredentialsMs"`
		MeanLatencyErrorMs              float64 `json:"meanLatencyErrorMs"`
	} `json:"logins"`
}

func (m *AccountsMetrics) Validate() error {
	if m.TotalUsers < 0 || m.ActiveUsers < 0 {
		return errors.New("negative user count")
	}
	return nil
}

// NotificationsMetrics reports email delivery counters.
type NotificationsMetrics struct {
	WelcomeEmails struct {
		Success int64 `json:"success"`
		Error   int64 `json:"error"`
	} `json:"welcomeEmails"`
	DailyEmails struct {
		Success             int64 `json:"success"`
		NoReport            int64 `json:"noReport"`
		AlreadySent         int64 `json:"alreadySent"`
		NoSubscribers       int64 `json:"noSubscribers"`
		NoActiveSubscribers int64 `json:"noActiveSubscribers"`
		MissingAPIKey       int64 `json:"missingApiKey"`
		Error               int64 `json:"error"`
		RecipientsTotal     int64 `json:"recipientsTotal"`
	} `json:"dailyEmails"`
	LatestReportDate      *string `json:"latestReportDate"`
	LatestReportEmailSent bool    `json:"latestReportEmailSent"`
}

func (m *NotificationsMetrics) Validate() error { return nil }

// SubscriptionsMetrics reports subscription activation counters.
type SubscriptionsMetrics struct {
	ActiveSubscriptions int64 `json:"activeSubscriptions"`
	ActivatedSuccess    int64 `json:"activatedSuccess"`
	ActivatedError      int64 `json:"activatedError"`
}

func (m *SubscriptionsMetrics) Validate() error {
	if m.ActiveSubscriptions < 0 {
		return errors.New("negative subscription count")
	}
	return nil
}

// PaymentsMetrics reports payment creation and confirmation counters.
type PaymentsMetrics struct {
	Created struct {
		Success       int64   `json:"success"`
		Error         int64   `json:"error"`
		MeanLatencyMs float64 `json:"meanLatencyMs"`
	} `json:"created"`
	Confirmed struct {
		Success                  int64   `json:"success"`
		InvalidState             int64   `json:"invalidState"`
		Error                    int64   `json:"error"`
		MeanLatencyMs            float64 `json:"meanLatencyMs"`
		MeanTimeToConfirmSeconds float64 `json:"meanTimeToConfirmSeconds"`
	} `json:"confirmed"`
}

func (m *PaymentsMetrics) Validate() error { return nil }

// AdminMetrics aggregates the metrics of every service.
type AdminMetrics struct {
	Accounts      *AccountsMetrics      `json:"accounts"`
	Notifications *NotificationsMetrics `json:"notifications"`
	Subscriptions *SubscriptionsMetrics `json:"subscriptions"`
	Payments      *PaymentsMetrics      `json:"payments"`
}

// AdminUserDetails is a user as seen by an administrator.
type AdminUserDetails struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName"`
	LastName  *string   `json:"lastName"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	Settings  Settings  `json:"settings"`
}

func (u *AdminUserDetails) Validate() error {
	if u.ID == "" {
		return errors.New("user id is empty")
	}
	return nil
}

// AdminPayment is a user's payment as seen by an administrator.
type AdminPayment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
	Plan        string     `json:"plan"`
	AmountXMR   string     `json:"amountXmr"`
}

func (p *AdminPayment) Validate() error {
	if p.ID == "" {
		return errors.New("payment id is empty")
	}
	return nil
}

// DiscordInfo reports whether the Discord invite is configured.
type DiscordInfo struct {
	Configured bool    `json:"configured"`
	InviteURL  *string `json:"inviteUrl"`
}

func (d *DiscordInfo) Validate() error { return nil }

// Metrics fetches the metrics of every service.
func (c *Client) Metrics(ctx context.Context) (*AdminMetrics, error) {
	m := &AdminMetrics{
		Accounts:      &AccountsMetrics{},
		Notifications: &NotificationsMetrics{},
		Subscriptions: &SubscriptionsMetrics{},
		Payments:      &PaymentsMetrics{},
	}
	calls := []struct {
		path, msg string
		dst       validator
	}{
		{"/api/accounts/admin/metrics", "Kunde inte hämta admin-metrics (accounts)", m.Accounts},
		{"/api/notifications/admin/metrics", "Kunde inte hämta admin-metrics (notifications)", m.Notifications},
		{"/api/subscriptions/admin/metrics", "Kunde inte hämta admin-metrics (subscriptions)", m.Subscriptions},
		{"/api/payments/admin/metrics", "Kunde inte hämta admin-metrics (payments)", m.Payments},
	}
	for _, call := range calls {
		if err := c.getJSON(ctx, call.path, call.msg, call.dst); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FindUserByEmail looks a user up by email address.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*AdminUserDetails, error) {
	var u AdminUserDetails
	path := "/api/accounts/admin/users/by-email?" + url.Values{"email": {email}}.Encode()
	err := c.getJSON(ctx, path, "Kunde inte hämta användare", &u)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			apiErr.Message = "Ingen användare hittades med den e-postadressen."
		}
		return nil, err
	}
	return &u, nil
}

// AnonymizeUser irreversibly strips a user's personal data.
func (c *Client) AnonymizeUser(ctx context.Context, userID string) (*AdminUserDetails, error) {
	var u AdminUserDetails
	err := c.sendJSON(ctx, http.MethodPost, "/api/accounts/admin/users/"+url.PathEscape(userID)+"/anonymize", nil,
		"Kunde inte anonymisera användare", &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserSettings replaces another user's settings and returns the
// updated user.
func (c *Client) UpdateUserSettings(ctx context.Context, userID string, s Settings) (*AdminUserDetails, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var u AdminUserDetails
	err := c.sendJSON(ctx, http.MethodPut, "/api/accounts/admin/users/"+url.PathEscape(userID)+"/settings", s,
		"Kunde inte uppdatera användarinställningar", &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ResendWelcomeEmail sends the welcome email again.
func (c *Client) ResendWelcomeEmail(ctx context.Context, email string, firstName *string) error {
	body := map[string]any{"email": email, "firstName": firstName}
	return c.send(ctx, http.MethodPost, "/api/notifications/admin/welcome-email/resend", body,
		"Kunde inte skicka välkomstmail igen")
}

// SendTestReport emails a daily report to one address. An empty
// reportDate means the latest report.
func (c *Client) SendTestReport(ctx context.Context, email, reportDate string) error {
	body := map[string]any{"email": email, "reportDate": nil}
	if reportDate != "" {
		body["reportDate"] = reportDate
	}
	return c.send(ctx, http.MethodPost, "/api/notifications/admin/daily-report/test-send", body,
		"Kunde inte skicka testrapport")
}

// UserSubscription returns a user's subscription, or nil if there is none.
func (c *Client) UserSubscription(ctx context.Context, userID string) (*SubscriptionDetail, error) {
	var s SubscriptionDetail
	err := c.getJSON(ctx, "/api/subscriptions/admin/users/"+url.PathEscape(userID),
		"Kunde inte hämta prenumeration för användare", &s)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UserLastPayment returns a user's most recent payment, or nil if there is
// none.
func (c *Client) UserLastPayment(ctx context.Context, userID string) (*AdminPayment, error) {
	var p AdminPayment
	err := c.getJSON(ctx, "/api/payments/admin/users/"+url.PathEscape(userID)+"/last-payment",
		"Kunde inte hämta senaste betalning för användare", &p)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RunDailyReport triggers report generation immediately.
func (c *Client) RunDailyReport(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/notifications/admin/daily-report/run-now", nil,
		"Kunde inte köra daglig rapport nu")
}

// DiscordInfo returns the Discord integration status.
func (c *Client) DiscordInfo(ctx context.Context) (*DiscordInfo, error) {
	var d DiscordInfo
	if err := c.getJSON(ctx, "/api/notifications/admin/discord/invite", "Kunde inte hämta Discord-info", &d); err != nil {
		return nil, err
	}
	return &d, nil
}
