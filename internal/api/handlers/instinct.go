package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/service"
)

type InstinctHandler struct {
	svc *service.InstinctService
}

func NewInstinctHandler(svc *service.InstinctService) *InstinctHandler {
	return &InstinctHandler{svc: svc}
}

type createInstinctRequest struct {
	Domain     string   `json:"domain"`
	Trigger    string   `json:"trigger"`
	Action     string   `json:"action"`
	Source     string   `json:"source,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (h *InstinctHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createInstinctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inst, err := h.svc.Create(r.Context(), tenant.ID, service.CreateInstinctParams{
		Domain:     req.Domain,
		Trigger:    req.Trigger,
		Action:     req.Action,
		Source:     req.Source,
		Confidence: req.Confidence,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDomain),
			errors.Is(err, service.ErrInvalidSource),
			errors.Is(err, service.ErrInvalidConfidence),
			errors.Is(err, service.ErrTriggerEmpty),
			errors.Is(err, service.ErrActionEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create instinct")
		}
		return
	}

	writeJSON(w, http.StatusCreated, inst)
}

func (h *InstinctHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	instincts, err := h.svc.List(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list instincts")
		return
	}

	writeJSON(w, http.StatusOK, instincts)
}

func (h *InstinctHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instinct id")
		return
	}

	inst, err := h.svc.GetByID(r.Context(), id, tenant.ID)
	if err != nil {
		if errors.Is(err, service.ErrInstinctNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get instinct")
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

func (h *InstinctHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instinct id")
		return
	}

	if err := h.svc.Delete(r.Context(), id, tenant.ID); err != nil {
		if errors.Is(err, service.ErrInstinctNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete instinct")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InstinctHandler) Reinforce(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instinct id")
		return
	}

	inst, err := h.svc.Reinforce(r.Context(), id, tenant.ID)
	if err != nil {
		if errors.Is(err, service.ErrInstinctNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reinforce instinct")
		return
	}

	writeJSON(w, http.StatusOK, inst)
}

type recordOutcomeRequest struct {
	Success *bool `json:"success"`
}

func (h *InstinctHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instinct id")
		return
	}

	var req recordOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Success == nil {
		writeError(w, http.StatusBadRequest, "success is required")
		return
	}

	inst, err := h.svc.RecordOutcome(r.Context(), id, tenant.ID, *req.Success)
	if err != nil {
		if errors.Is(err, service.ErrInstinctNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record outcome")
		return
	}

	writeJSON(w, http.StatusOK, inst)
}
