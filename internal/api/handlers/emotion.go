package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/service"
)

type EmotionHandler struct {
	svc *service.EmotionService
}

func NewEmotionHandler(svc *service.EmotionService) *EmotionHandler {
	return &EmotionHandler{svc: svc}
}

type emotionSignalRequest struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
}

type emotionSignalResponse struct {
	*domain.EmotionalState
	Accepted bool `json:"accepted"`
}

// Observe receives one labeled signal from the upstream classifier and runs
// the transition machine on it.
func (h *EmotionHandler) Observe(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req emotionSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, accepted, err := h.svc.Observe(r.Context(), tenant.ID, domain.EmotionSignal{
		State:      domain.Emotion(req.State),
		Confidence: req.Confidence,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmotion) || errors.Is(err, service.ErrInvalidSignalConfidence) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record emotional signal")
		return
	}

	writeJSON(w, http.StatusOK, emotionSignalResponse{EmotionalState: state, Accepted: accepted})
}

func (h *EmotionHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	state, err := h.svc.Current(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get emotional state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}
