package api

import (
	"net/http"
	"time"

	"github.com/warmline/warmline/server/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct{}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// serviceIsHealthy is injected by run.go once checkers are started.
var serviceIsHealthy = func() bool { return true }

// BindServiceHealth injects the aggregated health function.
func BindServiceHealth(f func() bool) { serviceIsHealthy = f }

// CheckHealth handles GET /health.
// Always returns 200; the body reports dependency state.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"ok":        true,
		"healthy":   serviceIsHealthy(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
