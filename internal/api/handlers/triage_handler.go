package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/healthbridge/HealthBridge/backend/internal/application/services"
)

// TriageHandler handles triage-related HTTP requests
type TriageHandler struct {
	triageService *services.TriageService
}

// NewTriageHandler creates a new triage handler
func NewTriageHandler(triageService *services.TriageService) *TriageHandler {
	return &TriageHandler{
		triageService: triageService,
	}
}

// Analyze handles POST /api/triage/analyze
func (h *TriageHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.triageService.Analyze(r.Context(), &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /api/conversations/{id}/messages
func (h *TriageHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := h.triageService.History(r.Context(), conversationID, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"messages":        messages,
		"count":           len(messages),
	})
}

// GetDecisions handles GET /api/conversations/{id}/decisions
func (h *TriageHandler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	decisions, err := h.triageService.Decisions(r.Context(), conversationID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"decisions":       decisions,
		"count":           len(decisions),
	})
}
