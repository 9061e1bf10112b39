package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/service"
)

// MaintenanceHandler exposes the operator/scheduled-job surface: stale
// listing and cleanup, cluster inspection and merge, decay persistence,
// and calibration. None of this runs on the hot request path.
type MaintenanceHandler struct {
	instincts   *service.InstinctService
	similarity  *service.SimilarityService
	decay       *service.DecaySweepService
	calibration *service.CalibrationService
}

func NewMaintenanceHandler(instincts *service.InstinctService, similarity *service.SimilarityService, decay *service.DecaySweepService, calibration *service.CalibrationService) *MaintenanceHandler {
	return &MaintenanceHandler{
		instincts:   instincts,
		similarity:  similarity,
		decay:       decay,
		calibration: calibration,
	}
}

func (h *MaintenanceHandler) ListStale(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = v
	}

	stale, err := h.instincts.ListStale(r.Context(), tenant.ID, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stale instincts")
		return
	}

	writeJSON(w, http.StatusOK, stale)
}

type cleanupStaleRequest struct {
	Days                int     `json:"days,omitempty"`
	MinConfidence       float64 `json:"min_confidence,omitempty"`
	MinOccurrenceToKeep int     `json:"min_occurrence_to_keep,omitempty"`
}

func (h *MaintenanceHandler) CleanupStale(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req cleanupStaleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	deleted, err := h.instincts.CleanupStale(r.Context(), tenant.ID, req.Days, req.MinConfidence, req.MinOccurrenceToKeep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clean up stale instincts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *MaintenanceHandler) FindClusters(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = v
	}

	clusters, err := h.similarity.FindClusters(r.Context(), tenant.ID, threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to find clusters")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

type mergeSimilarRequest struct {
	Threshold float64 `json:"threshold,omitempty"`
}

func (h *MaintenanceHandler) MergeSimilar(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req mergeSimilarRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.similarity.MergeSimilar(r.Context(), tenant.ID, req.Threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to merge similar instincts")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *MaintenanceHandler) TriggerDecaySweep(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	persisted, skipped, err := h.decay.RunSweepForTenant(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to run decay sweep")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"persisted": persisted, "skipped": skipped})
}

func (h *MaintenanceHandler) TriggerCalibration(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.calibration.Recalibrate(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to recalibrate")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
