package api

import (
	"context"
	"errors"
	"net/http"
)

// LatestReport returns the most recent daily report, or nil if none has
// been published yet.
func (c *Client) LatestReport(ctx context.Context) (*DailyReport, error) {
	var r DailyReport
	err := c.getJSON(ctx, "/api/notifications/latest", "Kunde inte hämta rapport", &r)
	if err == nil {
		return &r, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return nil, nil
		case http.StatusForbidden:
			apiErr.Message = NoSubscriptionMessage
		}
	}
	return nil, err
}

// SendDiscordInvite asks the backend to email a Discord invite to the
// signed-in user. It requires an active subscription.
func (c *Client) SendDiscordInvite(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/notifications/discord/invite/me", nil, "Kunde inte skicka Discord-inbjudan")
}
