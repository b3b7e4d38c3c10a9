package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/david-andreasson/novareport/internal/archive"
	"github.com/david-andreasson/novareport/pkg/logger"
	"github.com/david-andreasson/novareport/pkg/surface"
)

const (
	defaultListLimit = 30
	maxListLimit     = 366
)

// Handler serves mirrored reports over HTTP.
type Handler struct {
	svc  *Service
	ping func(context.Context) error
	lggr logger.Logger
}

// NewHandler creates a Handler. ping backs the health check and may be nil.
func NewHandler(svc *Service, ping func(context.Context) error, lggr logger.Logger) *Handler {
	return &Handler{svc: svc, ping: ping, lggr: lggr.Named("http")}
}

// RegisterRoutes registers all routes on mux. The refresh endpoint is
// guarded by refreshKey when it is non-empty.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, refreshKey string) {
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("GET /reports", h.handleList)
	mux.HandleFunc("GET /reports/latest", h.handleLatestHTML)
	mux.HandleFunc("GET /reports/latest.json", h.handleLatestJSON)
	mux.HandleFunc("GET /reports/{date}", h.handleByDate)

	mux.Handle("POST /reports/refresh", APIKeyAuth(refreshKey)(http.HandlerFunc(h.handleRefresh)))
}

type reportResponse struct {
	ReportDate string          `json:"report_date"`
	ReportID   string          `json:"report_id,omitempty"`
	FetchedAt  time.Time       `json:"fetched_at"`
	Summary    json.RawMessage `json:"summary"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	rows, err := h.svc.List(r.Context(), limit)
	if err != nil {
		h.lggr.Errorw("list reports", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if rows == nil {
		rows = []ReportRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleLatestHTML(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Latest(r.Context())
	if h.failed(w, err) {
		return
	}
	h.writeHTML(w, e)
}

func (h *Handler) handleLatestJSON(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Latest(r.Context())
	if h.failed(w, err) {
		return
	}

	var buf bytes.Buffer
	if err := (&surface.JSONRenderer{}).Render(&buf, e.Document); err != nil {
		h.lggr.Errorw("render json", "date", e.Row.ReportDate, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		ReportDate: e.Row.ReportDate,
		ReportID:   e.Row.ReportID,
		FetchedAt:  e.Row.FetchedAt,
		Summary:    json.RawMessage(buf.Bytes()),
	})
}

func (h *Handler) handleByDate(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !archive.ValidDate(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	e, err := h.svc.Entry(r.Context(), date)
	if h.failed(w, err) {
		return
	}
	h.writeHTML(w, e)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sync(r.Context())
	if err != nil {
		h.lggr.Errorw("refresh", "err", err)
		writeError(w, http.StatusBadGateway, "failed to refresh report")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// failed writes the error response for a failed load and reports whether
// it did.
func (h *Handler) failed(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNoRows), errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, "report not found")
	default:
		h.lggr.Errorw("load report", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
	}
	return true
}

func (h *Handler) writeHTML(w http.ResponseWriter, e *Entry) {
	var buf bytes.Buffer
	rr := &surface.HTMLRenderer{Title: surface.ReportHeader(e.Report.Timestamp())}
	if err := rr.Render(&buf, e.Document); err != nil {
		h.lggr.Errorw("render html", "date", e.Row.ReportDate, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
