// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	service "github.com/zopper/recon/internal/app"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/engine"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ByDimension(ctx context.Context, q service.Query) ([]model.AggregateRow, error)
	Summary(ctx context.Context, q service.Query) (model.Summary, error)
	Freshness(ctx context.Context, partner string, kind model.DatasetKind) (model.Freshness, error)

	IngestRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string, rows []map[string]any) (int, error)
	ReplaceBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string, rows []map[string]any) (int, error)
	DeleteRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string) (int64, error)
	InvalidateCache(partner string, kind model.DatasetKind, batchID string) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	analyticsHandler *AnalyticsHandler
	recordsHandler   *RecordsHandler
	healthHandler    *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		analyticsHandler: NewAnalyticsHandler(deps),
		recordsHandler:   NewRecordsHandler(deps),
		healthHandler:    NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/analytics/by-dimension", MetricsMiddleware(s.analyticsHandler.HandleByDimension, "by_dimension"))
	mux.HandleFunc("/analytics/summary", MetricsMiddleware(s.analyticsHandler.HandleSummary, "summary"))
	mux.HandleFunc("/analytics/freshness", MetricsMiddleware(s.analyticsHandler.HandleFreshness, "freshness"))
	mux.HandleFunc("/records", MetricsMiddleware(s.recordsHandler.HandleRecords, "records"))
	mux.HandleFunc("/cache/invalidate", MetricsMiddleware(s.recordsHandler.HandleInvalidate, "cache_invalidate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps known service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownPartner):
		writeError(w, http.StatusNotFound, "unknown_partner", err)
	case errors.Is(err, engine.ErrInvalidKind), errors.Is(err, service.ErrNoRecords):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrTooManyRows):
		writeError(w, http.StatusRequestEntityTooLarge, "too_many_rows", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// finite maps NaN and infinities to 0 so every response stays valid JSON.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
