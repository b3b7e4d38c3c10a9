// Package api is a typed client for the NovaReport REST services.
// Each resource (accounts, subscriptions, payments, reports, admin) lives in
// its own file; responses are validated before they are returned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david-andreasson/novareport/pkg/logger"
)

// CorrelationHeader carries a per-request id that the backend echoes into
// its logs.
const CorrelationHeader = "X-Correlation-Id"

// Client calls the NovaReport backend on behalf of one user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	lggr       logger.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, lggr logger.Logger) *Client {
	if lggr == nil {
		lggr = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		lggr:       lggr.Named("api"),
	}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token, if any.
func (c *Client) Token() string {
	return c.token
}

// validator is implemented by every response DTO.
type validator interface {
	Validate() error
}

// do sends a request with an optional JSON body. The caller closes the
// response body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CorrelationHeader, correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.lggr.Debugw("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"correlationId", correlationID,
		"duration", time.Since(start),
	)
	return resp, nil
}

// decode reads a JSON body into dst and validates it.
func decode(resp *http.Response, dst validator) error {
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// getJSON performs an authenticated GET and decodes a 2xx response into dst.
func (c *Client) getJSON(ctx context.Context, path, defaultMessage string, dst validator) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, defaultMessage, dst)
}

// sendJSON performs a request and decodes a 2xx response into dst.
func (c *Client) sendJSON(ctx context.Context, method, path string, body any, defaultMessage string, dst validator) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return c.responseError(resp, defaultMessage)
	}
	return decode(resp, dst)
}

// send performs a request whose response body is ignored.
func (c *Client) send(ctx context.Context, method, path string, body any, defaultMessage string) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp) {
		return c.responseError(resp, defaultMessage)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
