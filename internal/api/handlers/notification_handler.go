package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/healthbridge/HealthBridge/backend/internal/application/services"
)

// NotificationHandler handles worker notification HTTP requests
type NotificationHandler struct {
	dispatchService *services.DispatchService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatchService *services.DispatchService) *NotificationHandler {
	return &NotificationHandler{
		dispatchService: dispatchService,
	}
}

type acknowledgeRequest struct {
	WorkerID string `json:"worker_id"`
}

type respondRequest struct {
	WorkerID     string `json:"worker_id"`
	ResponseText string `json:"response_text"`
}

// Acknowledge handles POST /api/notifications/{id}/acknowledge
func (h *NotificationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	notificationID := r.PathValue("id")
	if notificationID == "" {
		respondWithError(w, http.StatusBadRequest, "notification ID is required")
		return
	}

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WorkerID == "" {
		respondWithError(w, http.StatusBadRequest, "worker_id is required")
		return
	}

	notification, err := h.dispatchService.Acknowledge(r.Context(), notificationID, req.WorkerID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, notification)
}

// Respond handles POST /api/notifications/{id}/respond
func (h *NotificationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	notificationID := r.PathValue("id")
	if notificationID == "" {
		respondWithError(w, http.StatusBadRequest, "notification ID is required")
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.WorkerID == "" {
		respondWithError(w, http.StatusBadRequest, "worker_id is required")
		return
	}

	notification, err := h.dispatchService.Respond(r.Context(), notificationID, req.WorkerID, req.ResponseText)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, notification)
}

// GetStats handles GET /api/workers/{id}/notifications/stats
func (h *NotificationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("id")
	if workerID == "" {
		respondWithError(w, http.StatusBadRequest, "worker ID is required")
		return
	}

	stats, err := h.dispatchService.Stats(r.Context(), workerID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
