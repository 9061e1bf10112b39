package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/service"
)

// TransferHandler is the export/import boundary: versioned JSON documents
// that round-trip losslessly.
type TransferHandler struct {
	svc *service.InstinctService
}

func NewTransferHandler(svc *service.InstinctService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := h.svc.Export(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export instincts")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

type importRequest struct {
	Strategy        string                 `json:"strategy"`
	ConfidenceBoost float64                `json:"confidence_boost,omitempty"`
	Document        *domain.ExportDocument `json:"document"`
}

func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Document == nil {
		writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	result, err := h.svc.Import(r.Context(), tenant.ID, req.Document, domain.ImportStrategy(req.Strategy), req.ConfidenceBoost)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportFormat),
			errors.Is(err, service.ErrInvalidStrategy),
			errors.Is(err, service.ErrInvalidDomain),
			errors.Is(err, service.ErrInvalidConfidence),
			errors.Is(err, service.ErrTriggerEmpty),
			errors.Is(err, service.ErrActionEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to import instincts")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
