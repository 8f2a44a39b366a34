package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/HealthBridge/backend/internal/application/services"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/triage"
)

type stubAnalysisProvider struct {
	result *entities.AnalysisResult
}

func (p *stubAnalysisProvider) Analyze(ctx context.Context, message string, history []entities.ConversationTurn, patient *entities.PatientContext) (*entities.AnalysisResult, error) {
	return p.result, nil
}

type stubConversationRepo struct {
	conversations map[string]*entities.Conversation
	messages      map[string][]*entities.ConversationMessage
}

func newStubConversationRepo() *stubConversationRepo {
	return &stubConversationRepo{
		conversations: map[string]*entities.Conversation{},
		messages:      map[string][]*entities.ConversationMessage{},
	}
}

func (r *stubConversationRepo) CreateConversation(ctx context.Context, c *entities.Conversation) error {
	r.conversations[c.ID] = c
	return nil
}

func (r *stubConversationRepo) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	if c, ok := r.conversations[id]; ok {
		return c, nil
	}
	return nil, apperrNotFound("conversation")
}

func (r *stubConversationRepo) AppendMessage(ctx context.Context, m *entities.ConversationMessage) error {
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	return nil
}

func (r *stubConversationRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entities.ConversationMessage, error) {
	return r.messages[conversationID], nil
}

type stubDecisionRepo struct {
	decisions map[string][]*entities.RoutingDecision
}

func newStubDecisionRepo() *stubDecisionRepo {
	return &stubDecisionRepo{decisions: map[string][]*entities.RoutingDecision{}}
}

func (r *stubDecisionRepo) Create(ctx context.Context, d *entities.RoutingDecision) error {
	r.decisions[d.ConversationID] = append(r.decisions[d.ConversationID], d)
	return nil
}

func (r *stubDecisionRepo) GetByID(ctx context.Context, id string) (*entities.RoutingDecision, error) {
	for _, list := range r.decisions {
		for _, d := range list {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return nil, apperrNotFound("routing decision")
}

func (r *stubDecisionRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entities.RoutingDecision, error) {
	return r.decisions[conversationID], nil
}

type stubFacilityRepo struct{}

func (r *stubFacilityRepo) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	return nil, apperrNotFound("facility")
}

func (r *stubFacilityRepo) FindNearestByType(ctx context.Context, facilityType entities.FacilityType, district string) (*entities.Facility, error) {
	return &entities.Facility{
		ID:       "f-1",
		Name:     "Test Facility",
		Type:     facilityType,
		District: district,
		IsActive: true,
	}, nil
}

func handlerKeywordTable() *triage.KeywordTable {
	return &triage.KeywordTable{
		Version: 1,
		Weights: map[triage.Category]int{
			triage.CategoryCritical: 60,
			triage.CategoryHigh:     40,
			triage.CategoryMedium:   20,
			triage.CategoryMild:     10,
		},
		Keywords: []triage.KeywordEntry{
			{Keyword: "chest pain", Category: triage.CategoryCritical, Emergency: true},
			{Keyword: "fever", Category: triage.CategoryMedium},
		},
	}
}

func newTriageTestMux(t *testing.T, analysis *stubAnalysisProvider) (*http.ServeMux, *stubDecisionRepo) {
	t.Helper()

	conversationRepo := newStubConversationRepo()
	decisionRepo := newStubDecisionRepo()

	dispatchService := services.NewDispatchService(
		&stubNotificationRepo{byID: map[string]*entities.WorkerNotification{}},
		&stubWorkerRepo{workers: map[string]*entities.HealthWorker{}},
		&stubGuard{},
		nil, 16, nil,
	)

	triageService := services.NewTriageService(
		analysis,
		services.NewSeverityService(handlerKeywordTable()),
		services.NewRoutingService(&stubFacilityRepo{}),
		dispatchService,
		conversationRepo,
		decisionRepo,
		nil,
	)

	handler := NewTriageHandler(triageService)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/triage/analyze", handler.Analyze)
	mux.HandleFunc("GET /api/conversations/{id}/messages", handler.GetHistory)
	mux.HandleFunc("GET /api/conversations/{id}/decisions", handler.GetDecisions)
	return mux, decisionRepo
}

func TestTriageHandler_Analyze_InvalidBody(t *testing.T) {
	mux, _ := newTriageTestMux(t, &stubAnalysisProvider{})

	req := httptest.NewRequest(http.MethodPost, "/api/triage/analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageHandler_Analyze_MissingUserID(t *testing.T) {
	mux, _ := newTriageTestMux(t, &stubAnalysisProvider{})

	body, _ := json.Marshal(map[string]string{"message": "I have a fever"})
	req := httptest.NewRequest(http.MethodPost, "/api/triage/analyze", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "user_id")
}

func TestTriageHandler_Analyze_HappyPath(t *testing.T) {
	analysis := &stubAnalysisProvider{
		result: &entities.AnalysisResult{
			Symptoms: []string{"fever"},
			RawReply: "It sounds like you have a fever.",
			Status:   entities.AnalysisOK,
		},
	}
	mux, decisionRepo := newTriageTestMux(t, analysis)

	body, _ := json.Marshal(map[string]string{
		"user_id": "u-1",
		"message": "I have a fever",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/triage/analyze", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "It sounds like you have a fever.", resp.Response)
	assert.Equal(t, 20, resp.Routing.SeverityScore)
	assert.Equal(t, entities.SeverityLow, resp.Routing.Severity)
	assert.Equal(t, entities.FacilityASHA, resp.Routing.FacilityType)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Len(t, decisionRepo.decisions[resp.ConversationID], 1)
}

func TestTriageHandler_GetDecisions(t *testing.T) {
	mux, decisionRepo := newTriageTestMux(t, &stubAnalysisProvider{})

	decisionRepo.decisions["c-1"] = []*entities.RoutingDecision{
		{ID: "d-1", ConversationID: "c-1", SeverityLevel: entities.SeverityLow, CreatedAt: time.Now()},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/c-1/decisions", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c-1", resp["conversation_id"])
	assert.EqualValues(t, 1, resp["count"])
}

func TestTriageHandler_GetHistory_UnknownConversation(t *testing.T) {
	mux, _ := newTriageTestMux(t, &stubAnalysisProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/c-9/messages?limit=5", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
