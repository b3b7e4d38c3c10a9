package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidResponse = errors.New("invalid response from backend")
)

// User-facing messages shared across resources.
const (
	SessionExpiredMessage = "Inloggningen har gått ut. Logga in igen."
	NoSubscriptionMessage = "Du saknar prenumeration för att läsa rapporten."
	EmailTakenMessage     = "E-postadressen är redan registrerad. Logga in i stället."
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-2xx response from the backend. Message is suitable for
// showing to the user.
type APIError struct {
	Status  int
	Title   string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// responseError reads an error response. Authenticated requests that get a
// 401 report an expired session regardless of the body.
func (c *Client) responseError(resp *http.Response, defaultMessage string) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	apiErr.Title, apiErr.Message = extractErrorMessage(resp, defaultMessage)
	if resp.StatusCode == http.StatusUnauthorized && c.token != "" {
		apiErr.Message = SessionExpiredMessage
	}
	return apiErr
}

// extractErrorMessage prefers a problem+json detail, then its title, then
// a plain-text body, then defaultMessage. It also returns the problem title.
func extractErrorMessage(resp *http.Response, defaultMessage string) (title, message string) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", defaultMessage
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/problem+json") {
		var p problem
		if err := json.Unmarshal(body, &p); err != nil {
			return "", defaultMessage
		}
		switch {
		case p.Detail != "":
			return p.Title, p.Detail
		case p.Title != "":
			return p.Title, p.Title
		}
		return "", defaultMessage
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return "", text
	}
	return "", defaultMessage
}
