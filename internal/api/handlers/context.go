package handlers

import (
	"net/http"
	"strconv"

	"github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/service"
)

type ContextHandler struct {
	builder *service.ContextBuilder
}

func NewContextHandler(builder *service.ContextBuilder) *ContextHandler {
	return &ContextHandler{builder: builder}
}

// Build is the consumer entry point: the prompt-assembly side calls it per
// turn and injects the returned block downstream.
func (h *ContextHandler) Build(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	opts := service.BuildOpts{
		Message: r.URL.Query().Get("message"),
	}

	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "invalid min_confidence")
			return
		}
		opts.MinConfidence = v
	}

	if raw := r.URL.Query().Get("max_per_domain"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "invalid max_per_domain")
			return
		}
		opts.MaxPerDomain = v
	}

	result, err := h.builder.Build(r.Context(), tenant.ID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build context")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
