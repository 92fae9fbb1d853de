package api

import (
	"net/http"
	"time"

	"github.com/taskivo/taskivo/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// serviceIsHealthy is injected by run.go once the health checkers exist.
var serviceIsHealthy = func() bool { return false }

func BindServiceHealth(f func() bool) { serviceIsHealthy = f }

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if serviceIsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
