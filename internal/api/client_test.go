package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-andreasson/novareport/internal/payment"
	"github.com/david-andreasson/novareport/pkg/logger"
)

// newTestClient starts a server routed by mux and returns a client for it.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, logger.Test(t))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"title": title, "detail": detail, "status": status})
}

func TestClient_RequestHeaders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, err := uuid.Parse(r.Header.Get(CorrelationHeader))
		assert.NoError(t, err, "correlation id should be a uuid")
		writeJSON(w, http.StatusOK, UserProfile{ID: "user-1", Email: "user@example.com", Role: "USER"})
	})

	c := newTestClient(t, mux).WithToken("token-123")
	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", p.Email)
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/accounts/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "Password123!" {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, "Felaktiga uppgifter")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "token-123"})
	})
	c := newTestClient(t, mux)

	tok, err := c.Login(context.Background(), "user@example.com", "Password123!")
	require.NoError(t, err)
	assert.Equal(t, "token-123", tok.AccessToken)

	_, err = c.Login(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Felaktiga uppgifter", err.Error())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_RegisterConflict(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "409 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeProblem(w, http.StatusConflict, "Conflict", "duplicate")
			},
			want: EmailTakenMessage,
		},
		{
			name: "exception title",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeProblem(w, http.StatusBadRequest, "EmailAlreadyExistsException", "")
			},
			want: EmailTakenMessage,
		},
		{
			name: "other problem uses detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeProblem(w, http.StatusBadRequest, "Bad Request", "Lösenordet är för kort")
			},
			want: "Lösenordet är för kort",
		},
		{
			name: "empty body uses default",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: "Registrering misslyckades",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/accounts/auth/register", tc.handler)
			c := newTestClient(t, mux)

			_, err := c.Register(context.Background(), RegisterRequest{Email: "a@example.com", Password: "x"})
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.Equal(t, tc.want == EmailTakenMessage, IsEmailTaken(err))
		})
	}
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"problem detail", "application/problem+json", `{"title":"T","detail":"D"}`, "D"},
		{"problem title", "application/problem+json; charset=utf-8", `{"title":"T"}`, "T"},
		{"problem empty", "application/problem+json", `{}`, "default"},
		{"problem malformed", "application/problem+json", `{not json`, "default"},
		{"plain text", "text/plain", "Något gick fel", "Något gick fel"},
		{"empty", "", "", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if tc.contentType != "" {
				rec.Header().Set("Content-Type", tc.contentType)
			}
			rec.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(rec, tc.body)

			_, got := extractErrorMessage(rec.Result(), "default")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClient_ExpiredSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/create", func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "JWT expired")
	})
	c := newTestClient(t, mux).WithToken("stale")

	_, err := c.CreatePayment(context.Background(), payment.PlanMonthly)
	require.Error(t, err)
	assert.Equal(t, SessionExpiredMessage, err.Error())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_Subscription(t *testing.T) {
	tests := []struct {
		name       string
		hasAccess  bool
		detailCode int
		wantDetail bool
		wantErr    bool
	}{
		{name: "no access skips detail", hasAccess: false},
		{name: "access with detail", hasAccess: true, detailCode: http.StatusOK, wantDetail: true},
		{name: "access without detail", hasAccess: true, detailCode: http.StatusNotFound},
		{name: "detail failure", hasAccess: true, detailCode: http.StatusInternalServerError, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			detailCalls := 0
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/subscriptions/me/has-access", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]bool{"hasAccess": tc.hasAccess})
			})
			mux.HandleFunc("GET /api/subscriptions/me", func(w http.ResponseWriter, r *http.Request) {
				detailCalls++
				if tc.detailCode != http.StatusOK {
					w.WriteHeader(tc.detailCode)
					return
				}
				writeJSON(w, http.StatusOK, map[string]string{
					"userId":  "user-1",
					"plan":    "monthly",
					"status":  "ACTIVE",
					"startAt": "2024-01-01T00:00:00Z",
					"endAt":   "2024-01-31T00:00:00Z",
				})
			})
			c := newTestClient(t, mux).WithToken("t")

			info, err := c.Subscription(context.Background())
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.hasAccess, info.HasAccess)
			assert.Equal(t, tc.wantDetail, info.Detail != nil)
			if !tc.hasAccess {
				assert.Zero(t, detailCalls)
			}
		})
	}
}

func TestClient_LatestReport(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantNil bool
		wantErr error
		wantMsg string
	}{
		{
			name:   "report",
			status: http.StatusOK,
			body:   map[string]string{"reportId": "r-1", "reportDate": "2024-01-01", "summary": "# Rubrik"},
		},
		{name: "not published", status: http.StatusNotFound, wantNil: true},
		{name: "no subscription", status: http.StatusForbidden, wantErr: ErrForbidden, wantMsg: NoSubscriptionMessage},
		{name: "expired", status: http.StatusUnauthorized, wantErr: ErrUnauthorized, wantMsg: SessionExpiredMessage},
		{
			name:    "invalid date",
			status:  http.StatusOK,
			body:    map[string]string{"reportDate": "igår", "summary": "x"},
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/notifications/latest", func(w http.ResponseWriter, r *http.Request) {
				if tc.body == nil {
					w.WriteHeader(tc.status)
					return
				}
				writeJSON(w, tc.status, tc.body)
			})
			c := newTestClient(t, mux).WithToken("t")

			r, err := c.LatestReport(context.Background())
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				if tc.wantMsg != "" {
					assert.Equal(t, tc.wantMsg, err.Error())
				}
				return
			}
			require.NoError(t, err)
			if tc.wantNil {
				assert.Nil(t, r)
				return
			}
			require.NotNil(t, r)
			assert.Equal(t, "r-1", r.Key())
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.Timestamp())
		})
	}
}

func TestClient_Gateways(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/payments/create", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "yearly", body["plan"])
		assert.Equal(t, "0.50", body["amountXmr"])
		writeJSON(w, http.StatusOK, map[string]string{
			"paymentId":      "pay-xmr",
			"paymentAddress": "44AFFq5kSiGBoZ",
			"amountXmr":      "0.50",
			"expiresAt":      "2024-01-01T01:00:00Z",
		})
	})
	mux.HandleFunc("GET /api/payments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"paymentId": r.PathValue("id"), "status": "PENDING"})
	})
	mux.HandleFunc("POST /api/payments-stripe/create-intent", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"paymentId":    "pay-card",
			"clientSecret": "pi_secret",
			"amountFiat":   99.0,
			"currencyFiat": "SEK",
		})
	})
	mux.HandleFunc("GET /api/payments-stripe/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"paymentId": r.PathValue("id"), "status": "CONFIRMED"})
	})
	c := newTestClient(t, mux).WithToken("t")
	ctx := context.Background()

	xmr, err := c.Gateway(payment.MethodXMR)
	require.NoError(t, err)
	inv, err := xmr.CreatePayment(ctx, payment.PlanYearly)
	require.NoError(t, err)
	assert.Equal(t, payment.MethodXMR, inv.Method)
	assert.Equal(t, 0.5, inv.AmountXMR)
	assert.Equal(t, "44AFFq5kSiGBoZ", inv.Address)
	st, err := xmr.FetchStatus(ctx, inv.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, st)

	card, err := c.StatusFetcher(payment.MethodCard)
	require.NoError(t, err)
	st, err = card.FetchStatus(ctx, "pay-card")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusConfirmed, st)

	inv, err = c.Gateways()[payment.MethodCard].CreatePayment(ctx, payment.PlanMonthly)
	require.NoError(t, err)
	assert.Equal(t, "pi_secret", inv.ClientSecret)
	assert.Equal(t, "SEK", inv.CurrencyFiat)

	_, err = c.Gateway("paypal")
	assert.Error(t, err)
}

func TestClient_InvalidPaymentStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"paymentId": "p", "status": "MAYBE"})
	})
	c := newTestClient(t, mux).WithToken("t")

	_, err := c.PaymentStatus(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestClient_AdminLookups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/accounts/admin/users/by-email", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "anna@example.com" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "user-1", "email": "anna@example.com", "role": "USER", "active": true,
			"createdAt": "2024-01-01T00:00:00Z",
			"settings":  DefaultSettings(),
		})
	})
	mux.HandleFunc("GET /api/subscriptions/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/payments/admin/users/{id}/last-payment", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "pay-1", "userId": r.PathValue("id"), "status": "CONFIRMED",
			"createdAt": "2024-01-01T00:00:00Z", "plan": "monthly", "amountXmr": "0.01",
		})
	})
	mux.HandleFunc("POST /api/notifications/admin/daily-report/test-send", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "anna@example.com", body["email"])
		assert.Nil(t, body["reportDate"])
		w.WriteHeader(http.StatusAccepted)
	})
	c := newTestClient(t, mux).WithToken("admin")
	ctx := context.Background()

	u, err := c.FindUserByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "Europe/Stockholm", u.Settings.Timezone)

	_, err = c.FindUserByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Ingen användare hittades med den e-postadressen.", err.Error())

	sub, err := c.UserSubscription(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, sub)

	p, err := c.UserLastPayment(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)

	require.NoError(t, c.SendTestReport(ctx, "anna@example.com", ""))
}

func TestSettingsValidate(t *testing.T) {
	s := DefaultSettings()
	assert.NoError(t, s.Validate())

	s.Timezone = "Mars/Olympus"
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Locale = ""
	assert.Error(t, s.Validate())
}
