package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/zopper/recon/internal/domain/model"
)

// RecordsHandler serves record ingestion and cache management endpoints.
type RecordsHandler struct {
	deps Dependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps Dependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

type ingestRequest struct {
	Partner string           `json:"partner"`
	Kind    string           `json:"dataset_kind"`
	BatchID string           `json:"batch_id"`
	Replace bool             `json:"replace"`
	Rows    []map[string]any `json:"rows"`
}

type ingestResponse struct {
	Stored  int    `json:"stored"`
	BatchID string `json:"batch_id,omitempty"`
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// HandleRecords serves POST /records (ingest or replace) and
// DELETE /records (drop a partner/kind/batch slice).
func (h *RecordsHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleIngest(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *RecordsHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err)
		return
	}
	partner := strings.TrimSpace(req.Partner)
	if partner == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", errMissingPartner)
		return
	}
	kind := model.DatasetKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind", errInvalidKind)
		return
	}
	// A replace of the empty batch id is meaningful (it targets rows stored
	// without one), so only plain ingests get a generated id.
	if req.BatchID == "" && !req.Replace {
		req.BatchID = uuid.NewString()
	}

	var (
		stored int
		err    error
	)
	if req.Replace {
		stored, err = h.deps.ReplaceBatch(r.Context(), partner, kind, req.BatchID, req.Rows)
	} else {
		stored, err = h.deps.IngestRecords(r.Context(), partner, kind, req.BatchID, req.Rows)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingestResponse{Stored: stored, BatchID: req.BatchID})
}

func (h *RecordsHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	partner := strings.TrimSpace(vals.Get("partner"))
	if partner == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", errMissingPartner)
		return
	}
	kind := model.DatasetKind(strings.ToLower(strings.TrimSpace(vals.Get("kind"))))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind", errInvalidKind)
		return
	}

	deleted, err := h.deps.DeleteRecords(r.Context(), partner, kind, strings.TrimSpace(vals.Get("batch_id")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

type invalidateRequest struct {
	Partner string `json:"partner"`
	Kind    string `json:"dataset_kind"`
	BatchID string `json:"batch_id"`
}

type invalidateResponse struct {
	Evicted int `json:"evicted"`
}

// HandleInvalidate serves POST /cache/invalidate. An empty body (or empty
// partner) evicts every cached snapshot.
func (h *RecordsHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	var req invalidateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	kind := model.DatasetKind(strings.ToLower(strings.TrimSpace(req.Kind)))

	evicted, err := h.deps.InvalidateCache(strings.TrimSpace(req.Partner), kind, strings.TrimSpace(req.BatchID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invalidateResponse{Evicted: evicted})
}
