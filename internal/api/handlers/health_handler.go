package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports reachability of one dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency readiness
type HealthHandler struct {
	db            Pinger
	redis         Pinger
	analysisReady bool
}

// NewHealthHandler creates a new health handler. analysisReady reflects
// whether the analysis provider is configured, not whether it is
// reachable; probing it would burn rate-limit budget on health checks.
func NewHealthHandler(db, redis Pinger, analysisReady bool) *HealthHandler {
	return &HealthHandler{
		db:            db,
		redis:         redis,
		analysisReady: analysisReady,
	}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"analysis": "ok",
	}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		components["database"] = "unreachable"
		healthy = false
	}
	if err := h.redis.Ping(ctx); err != nil {
		components["redis"] = "unreachable"
		healthy = false
	}
	if !h.analysisReady {
		components["analysis"] = "not configured"
		healthy = false
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respondWithJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": components,
	})
}
