package api

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/accounts/auth/login", body, "Inloggning misslyckades")
}

// Register creates an account and returns a bearer token for it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	return c.authenticate(ctx, "/api/accounts/auth/register", req, "Registrering misslyckades")
}

func (c *Client) authenticate(ctx context.Context, path string, body any, defaultMessage string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return nil, accountsError(c.responseError(resp, defaultMessage))
	}

	var tok TokenResponse
	if err := decode(resp, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Profile returns the signed-in user.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	if err := c.getJSON(ctx, "/api/accounts/me", "Kunde inte hämta profil", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateSettings replaces the user's settings.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return c.send(ctx, http.MethodPut, "/api/accounts/me/settings", s, "Kunde inte spara inställningar")
}

// accountsError maps a duplicate-email conflict to a friendlier message.
func accountsError(apiErr *APIError) error {
	if apiErr.Status == http.StatusConflict || apiErr.Title == "EmailAlreadyExistsException" {
		apiErr.Message = EmailTakenMessage
	}
	return apiErr
}

// IsEmailTaken reports whether err is a duplicate-email registration error.
func IsEmailTaken(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Message == EmailTakenMessage
}
