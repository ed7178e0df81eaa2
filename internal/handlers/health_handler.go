package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
)

// HealthHandler serves the unauthenticated liveness endpoint.
type HealthHandler struct {
	logger    arbor.ILogger
	startedAt time.Time
}

func NewHealthHandler(logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{
		logger:    logger,
		startedAt: time.Now(),
	}
}

// HealthCheckHandler reports service liveness.
// GET /api/v1/health
func (h *HealthHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  common.GetVersion(),
		"uptime_s": int(time.Since(h.startedAt).Seconds()),
	})
}
