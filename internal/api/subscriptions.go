package api

import (
	"context"
	"errors"
)

// Subscription checks whether the user has access and, if so, fetches the
// subscription detail. A missing detail (404) is not an error.
func (c *Client) Subscription(ctx context.Context) (*SubscriptionInfo, error) {
	var access accessResponse
	if err := c.getJSON(ctx, "/api/subscriptions/me/has-access", "Kunde inte kontrollera prenumeration", &access); err != nil {
		return nil, err
	}

	info := &SubscriptionInfo{HasAccess: *access.HasAccess}
	if !info.HasAccess {
		return info, nil
	}

	var detail SubscriptionDetail
	err := c.getJSON(ctx, "/api/subscriptions/me", "Kunde inte hämta prenumerationsdetaljer", &detail)
	switch {
	case err == nil:
		info.Detail = &detail
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}
	return info, nil
}
