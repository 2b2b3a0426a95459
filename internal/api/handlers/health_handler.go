package handlers

import (
	"net/http"

	"github.com/minhvu/schedly-be/internal/monitoring"
)

// HealthHandler reports service liveness and a host snapshot.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Get handles the health check request.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"system": monitoring.CollectSystemInfo(),
	})
}
