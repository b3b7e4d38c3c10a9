package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-andreasson/novareport/internal/api"
	"github.com/david-andreasson/novareport/pkg/logger"
)

func newTestMux(t *testing.T, src ReportSource, ping func(context.Context) error, key string) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t, src)
	mux := http.NewServeMux()
	NewHandler(svc, ping, logger.Test(t)).RegisterRoutes(mux, key)
	return CORS(RequestLog(logger.Test(t))(mux)), svc
}

func do(t *testing.T, h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_EmptyMirror(t *testing.T) {
	h, _ := newTestMux(t, &fakeSource{}, nil, "")

	rec := do(t, h, http.MethodGet, "/reports/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/reports", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_LatestAfterSync(t *testing.T) {
	src := &fakeSource{report: &api.DailyReport{
		ReportID:   "r-7",
		ReportDate: "2024-03-01",
		Summary:    "# Läget\n\nBTC <script>x</script> **stark**",
	}}
	h, svc := newTestMux(t, src, nil, "")
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/reports/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<h2>Läget</h2>")
	assert.Contains(t, body, "<strong>stark</strong>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")

	rec = do(t, h, http.MethodGet, "/reports/latest.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		ReportDate string          `json:"report_date"`
		ReportID   string          `json:"report_id"`
		Summary    json.RawMessage `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-03-01", got.ReportDate)
	assert.Equal(t, "r-7", got.ReportID)
	assert.Contains(t, string(got.Summary), `"heading"`)

	rec = do(t, h, http.MethodGet, "/reports/2024-03-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/reports/2024-02-30", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/reports/2024-02-01", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/reports?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []ReportRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-01", rows[0].ReportDate)

	rec = do(t, h, http.MethodGet, "/reports?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Refresh(t *testing.T) {
	src := &fakeSource{report: &api.DailyReport{ReportDate: "2024-03-01", Summary: "x"}}
	h, _ := newTestMux(t, src, nil, "hemlig")

	rec := do(t, h, http.MethodPost, "/reports/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, src.calls)

	rec = do(t, h, http.MethodPost, "/reports/refresh", http.Header{"X-Api-Key": {"hemlig"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "stored"`)

	src.err = errors.New("backend nere")
	rec = do(t, h, http.MethodPost, "/reports/refresh", http.Header{"X-Api-Key": {"hemlig"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestMux(t, &fakeSource{}, func(context.Context) error { return nil }, "")
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)

	h, _ = newTestMux(t, &fakeSource{}, func(context.Context) error { return errors.New("down") }, "")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/healthz", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestMux(t, &fakeSource{}, nil, "")
	rec := do(t, h, http.MethodOptions, "/reports", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPGRepositoryQueries(t *testing.T) {
	// The queries need a live Postgres; check they target the reports table
	// and agree on the column list.
	for _, q := range []string{upsertReportSQL, selectReportByDateSQL, selectLatestReportSQL, listReportsSQL} {
		assert.Contains(t, q, "reports")
		assert.Contains(t, q, reportColumns)
	}
	assert.NotNil(t, NewPGRepository(nil))
}
