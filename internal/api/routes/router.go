package routes

import (
	"net/http"

	"github.com/healthbridge/HealthBridge/backend/internal/api/handlers"
	"github.com/healthbridge/HealthBridge/backend/internal/api/middleware"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	triageHandler       *handlers.TriageHandler
	notificationHandler *handlers.NotificationHandler
	healthHandler       *handlers.HealthHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	triageHandler *handlers.TriageHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		triageHandler:       triageHandler,
		notificationHandler: notificationHandler,
		healthHandler:       healthHandler,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.healthHandler.Check)

	// Triage endpoints
	r.mux.HandleFunc("POST /api/triage/analyze", r.triageHandler.Analyze)
	r.mux.HandleFunc("GET /api/conversations/{id}/messages", r.triageHandler.GetHistory)
	r.mux.HandleFunc("GET /api/conversations/{id}/decisions", r.triageHandler.GetDecisions)

	// Worker notification endpoints
	r.mux.HandleFunc("POST /api/notifications/{id}/acknowledge", r.notificationHandler.Acknowledge)
	r.mux.HandleFunc("POST /api/notifications/{id}/respond", r.notificationHandler.Respond)
	r.mux.HandleFunc("GET /api/workers/{id}/notifications/stats", r.notificationHandler.GetStats)

	// Apply middleware chain
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
