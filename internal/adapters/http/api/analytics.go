package api

import (
	"net/http"
	"strings"
	"time"

	service "github.com/zopper/recon/internal/app"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/temporal"
)

// AnalyticsHandler serves aggregation and freshness queries.
type AnalyticsHandler struct {
	deps Dependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps Dependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

type aggregateRow struct {
	Dimension string             `json:"dimension"`
	Value     float64            `json:"value"`
	Month     string             `json:"month,omitempty"`
	Extra     map[string]float64 `json:"extra,omitempty"`
}

type byDimensionResponse struct {
	Partner   string         `json:"partner"`
	Kind      string         `json:"dataset_kind"`
	Dimension string         `json:"dimension"`
	Metric    string         `json:"metric"`
	Rows      []aggregateRow `json:"rows"`
}

// HandleByDimension serves GET /analytics/by-dimension.
//
// Query params: partner (required), dimension (required), metric (required),
// kind (default sales), batch_id, from, to (dates in any supported format).
func (h *AnalyticsHandler) HandleByDimension(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	q.Dimension = strings.TrimSpace(r.URL.Query().Get("dimension"))
	q.Metric = strings.TrimSpace(r.URL.Query().Get("metric"))
	if q.Dimension == "" || q.Metric == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", errMissingDimension)
		return
	}

	rows, err := h.deps.ByDimension(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := byDimensionResponse{
		Partner:   q.Partner,
		Kind:      string(q.Kind),
		Dimension: q.Dimension,
		Metric:    q.Metric,
		Rows:      make([]aggregateRow, 0, len(rows)),
	}
	for _, row := range rows {
		out := aggregateRow{Dimension: row.Dimension, Value: finite(row.Value)}
		if !row.Month.IsZero() {
			out.Month = row.Month.Format("2006-01")
		}
		if len(row.Extra) > 0 {
			out.Extra = make(map[string]float64, len(row.Extra))
			for k, v := range row.Extra {
				out.Extra[k] = finite(v)
			}
		}
		resp.Rows = append(resp.Rows, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSummary serves GET /analytics/summary.
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}

	sum, err := h.deps.Summary(r.Context(), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sum.GrossPremium = finite(sum.GrossPremium)
	sum.EarnedPremium = finite(sum.EarnedPremium)
	sum.SharedEarnedPremium = finite(sum.SharedEarnedPremium)
	writeJSON(w, http.StatusOK, sum)
}

type freshnessResponse struct {
	Partner     string `json:"partner"`
	Kind        string `json:"dataset_kind"`
	LastUpdated string `json:"last_updated,omitempty"`
	DataFrom    string `json:"data_from,omitempty"`
	DataTo      string `json:"data_to,omitempty"`
}

// HandleFreshness serves GET /analytics/freshness.
func (h *AnalyticsHandler) HandleFreshness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}

	fresh, err := h.deps.Freshness(r.Context(), q.Partner, q.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := freshnessResponse{Partner: fresh.Partner, Kind: string(fresh.Kind)}
	if !fresh.LastUpdated.IsZero() {
		resp.LastUpdated = fresh.LastUpdated.UTC().Format(time.RFC3339)
	}
	if !fresh.DataFrom.IsZero() {
		resp.DataFrom = fresh.DataFrom.Format("2006-01-02")
	}
	if !fresh.DataTo.IsZero() {
		resp.DataTo = fresh.DataTo.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseQuery reads the shared analytics query parameters. On failure an
// error response has already been written and ok is false.
func parseQuery(w http.ResponseWriter, r *http.Request) (service.Query, bool) {
	var q service.Query
	vals := r.URL.Query()

	q.Partner = strings.TrimSpace(vals.Get("partner"))
	if q.Partner == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", errMissingPartner)
		return q, false
	}

	kind := strings.ToLower(strings.TrimSpace(vals.Get("kind")))
	if kind == "" {
		kind = string(model.KindSales)
	}
	q.Kind = model.DatasetKind(kind)
	if !q.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind", errInvalidKind)
		return q, false
	}

	q.BatchID = strings.TrimSpace(vals.Get("batch_id"))

	if raw := strings.TrimSpace(vals.Get("from")); raw != "" {
		t, ok := temporal.ParseDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", errInvalidFrom)
			return q, false
		}
		q.From = t
	}
	if raw := strings.TrimSpace(vals.Get("to")); raw != "" {
		t, ok := temporal.ParseDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", errInvalidTo)
			return q, false
		}
		q.To = t
	}
	return q, true
}
