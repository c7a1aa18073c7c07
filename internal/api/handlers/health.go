package handlers

import (
	"net/http"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	*Base
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{Base: &Base{}, version: version}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
