package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

type fakeAnalysisProvider struct {
	result     *entities.AnalysisResult
	err        error
	gotMessage string
	gotHistory []entities.ConversationTurn
	gotPatient *entities.PatientContext
}

func (f *fakeAnalysisProvider) Analyze(ctx context.Context, message string, history []entities.ConversationTurn, patient *entities.PatientContext) (*entities.AnalysisResult, error) {
	f.gotMessage = message
	f.gotHistory = history
	f.gotPatient = patient
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entities.Conversation
	messages      map[string][]*entities.ConversationMessage
	failAppend    bool
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*entities.Conversation),
		messages:      make(map[string][]*entities.ConversationMessage),
	}
}

func (f *fakeConversationRepo) CreateConversation(ctx context.Context, c *entities.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[c.ID] = c
	return nil
}

func (f *fakeConversationRepo) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[id]; ok {
		return c, nil
	}
	return nil, apperrors.NewNotFoundError("conversation not found")
}

func (f *fakeConversationRepo) AppendMessage(ctx context.Context, m *entities.ConversationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return apperrors.NewInternalError("append failed", nil)
	}
	f.messages[m.ConversationID] = append(f.messages[m.ConversationID], m)
	return nil
}

func (f *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entities.ConversationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[conversationID], nil
}

type fakeDecisionRepo struct {
	mu         sync.Mutex
	decisions  map[string]*entities.RoutingDecision
	failCreate bool
}

func newFakeDecisionRepo() *fakeDecisionRepo {
	return &fakeDecisionRepo{decisions: make(map[string]*entities.RoutingDecision)}
}

func (f *fakeDecisionRepo) Create(ctx context.Context, d *entities.RoutingDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return apperrors.NewInternalError("insert failed", nil)
	}
	f.decisions[d.ID] = d
	return nil
}

func (f *fakeDecisionRepo) GetByID(ctx context.Context, id string) (*entities.RoutingDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.decisions[id]; ok {
		return d, nil
	}
	return nil, apperrors.NewNotFoundError("decision not found")
}

func (f *fakeDecisionRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entities.RoutingDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.RoutingDecision
	for _, d := range f.decisions {
		if d.ConversationID == conversationID {
			out = append(out, d)
		}
	}
	return out, nil
}

type triageFixture struct {
	service          *TriageService
	analysis         *fakeAnalysisProvider
	conversationRepo *fakeConversationRepo
	decisionRepo     *fakeDecisionRepo
	dispatch         *DispatchService
}

func newTriageFixture(t *testing.T, analysis *fakeAnalysisProvider) *triageFixture {
	t.Helper()

	conversationRepo := newFakeConversationRepo()
	decisionRepo := newFakeDecisionRepo()
	facilityRepo := &fakeFacilityRepo{facilities: map[entities.FacilityType]*entities.Facility{
		entities.FacilityASHA:      {ID: "asha-1", Type: entities.FacilityASHA},
		entities.FacilityPHC:       {ID: "phc-1", Type: entities.FacilityPHC},
		entities.FacilityCHC:       {ID: "chc-1", Type: entities.FacilityCHC},
		entities.FacilityEmergency: {ID: "er-1", Type: entities.FacilityEmergency},
	}}
	workerRepo := &fakeWorkerRepo{workers: []*entities.HealthWorker{
		{ID: "w-asha", Type: entities.WorkerASHA, OnDuty: true},
		{ID: "w-phc", Type: entities.WorkerPHCDoctor, OnDuty: true},
		{ID: "w-er", Type: entities.WorkerEmergency, OnDuty: true},
	}}

	// Dispatch pool is deliberately not started: enqueued jobs stay
	// buffered so tests can assert on queue depth.
	dispatch := NewDispatchService(newFakeNotificationRepo(), workerRepo, newFakeGuard(), channelSenders(&fakeSender{channel: entities.ChannelApp}), 8, nil)

	service := NewTriageService(
		analysis,
		NewSeverityService(testKeywordTable()),
		NewRoutingService(facilityRepo),
		dispatch,
		conversationRepo,
		decisionRepo,
		nil,
	)

	return &triageFixture{
		service:          service,
		analysis:         analysis,
		conversationRepo: conversationRepo,
		decisionRepo:     decisionRepo,
		dispatch:         dispatch,
	}
}

func TestTriageService_Analyze_Validation(t *testing.T) {
	fx := newTriageFixture(t, &fakeAnalysisProvider{})

	tests := []struct {
		name string
		req  *AnalyzeRequest
	}{
		{"missing user id", &AnalyzeRequest{Message: "I have a fever"}},
		{"missing message", &AnalyzeRequest{UserID: "patient-1"}},
		{"blank message", &AnalyzeRequest{UserID: "patient-1", Message: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		})
	}
}

func TestTriageService_Analyze_HappyPath(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms: []string{"fever", "vomiting"},
		RawReply: "It sounds like you may have an infection. Please visit your PHC.",
		Status:   entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "I have fever and vomiting since yesterday",
	})
	require.NoError(t, err)

	assert.Equal(t, "It sounds like you may have an infection. Please visit your PHC.", resp.Response)
	assert.Equal(t, entities.SeverityLow, resp.Routing.Severity)
	assert.Equal(t, 40, resp.Routing.SeverityScore)
	assert.Equal(t, entities.FacilityASHA, resp.Routing.FacilityType)
	assert.Equal(t, entities.TimeframeWithinDay, resp.Routing.Timeframe)
	assert.NotEmpty(t, resp.ConversationID)
	assert.NotEmpty(t, resp.MessageID)
	assert.Empty(t, resp.Warning)

	// Conversation recorded: the user turn and the assistant turn
	messages := fx.conversationRepo.messages[resp.ConversationID]
	require.Len(t, messages, 2)
	assert.Equal(t, entities.RoleUser, messages[0].Role)
	assert.Equal(t, entities.RoleAssistant, messages[1].Role)

	// Decision persisted and dispatch enqueued
	require.Len(t, fx.decisionRepo.decisions, 1)
	assert.Len(t, fx.dispatch.queue, 1)
}

func TestTriageService_Analyze_EmergencyPath(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms:          []string{"chest pain", "difficulty breathing"},
		EmergencyKeywords: true,
		RawReply:          "This sounds serious. Please call 108 right away.",
		Status:            entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "severe chest pain and difficulty breathing",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.SeverityCritical, resp.Routing.Severity)
	assert.GreaterOrEqual(t, resp.Routing.SeverityScore, entities.EmergencyFloor)
	assert.Equal(t, entities.FacilityEmergency, resp.Routing.FacilityType)
	assert.Equal(t, entities.TimeframeImmediate, resp.Routing.Timeframe)
	assert.Contains(t, resp.Routing.Instructions, "Call 108 immediately for ambulance")
	assert.NotEmpty(t, resp.Routing.RedFlags)
}

func TestTriageService_Analyze_GreetingPath(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms: []string{},
		RawReply: "Hello! How can I help you today?",
		Status:   entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.SeverityLow, resp.Routing.Severity)
	assert.Equal(t, 0, resp.Routing.SeverityScore)
	assert.Equal(t, entities.FacilityASHA, resp.Routing.FacilityType)
	assert.Equal(t, entities.TimeframeAsNeeded, resp.Routing.Timeframe)
	assert.Nil(t, resp.Routing.FacilityID)
}

func TestTriageService_Analyze_DegradedAnalysis(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: entities.DegradedResult(
		"I'm having trouble understanding right now. If this is urgent, please contact your nearest health worker.",
	)}
	fx := newTriageFixture(t, analysis)

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "my stomach hurts",
	})
	require.NoError(t, err, "degraded analysis is never a user-facing failure")

	assert.Equal(t, entities.SeverityLow, resp.Routing.Severity)
	assert.Equal(t, 0, resp.Routing.SeverityScore)
	assert.Contains(t, resp.Response, "trouble understanding")
}

func TestTriageService_Analyze_PersistenceWarning(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms: []string{"fever"},
		RawReply: "You may have a mild infection.",
		Status:   entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)
	fx.decisionRepo.failCreate = true

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "I have a fever",
	})
	require.NoError(t, err, "persistence failure degrades to a warning")

	assert.Equal(t, "You may have a mild infection.", resp.Response)
	assert.Contains(t, resp.Warning, "routing decision could not be recorded")
	assert.Len(t, fx.dispatch.queue, 0, "unpersisted decisions are never dispatched")
}

func TestTriageService_Analyze_ExistingConversationHistory(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms: []string{"fever"},
		RawReply: "How long has the fever lasted?",
		Status:   entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)

	now := time.Now().UTC()
	conversation := &entities.Conversation{ID: "conv-1", UserID: "patient-1", Language: "en", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, fx.conversationRepo.CreateConversation(context.Background(), conversation))
	require.NoError(t, fx.conversationRepo.AppendMessage(context.Background(), &entities.ConversationMessage{
		ID: "m-1", ConversationID: "conv-1", Role: entities.RoleUser, Content: "hello", CreatedAt: now,
	}))
	require.NoError(t, fx.conversationRepo.AppendMessage(context.Background(), &entities.ConversationMessage{
		ID: "m-2", ConversationID: "conv-1", Role: entities.RoleAssistant, Content: "Hi! How can I help?", CreatedAt: now,
	}))

	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:         "patient-1",
		Message:        "I have a fever now",
		ConversationID: "conv-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, fx.analysis.gotHistory, 2)
	assert.Equal(t, "hello", fx.analysis.gotHistory[0].Content)
}

func TestTriageService_Analyze_PatientContextForwarded(t *testing.T) {
	analysis := &fakeAnalysisProvider{result: &entities.AnalysisResult{
		Symptoms: []string{"fever"},
		RawReply: "Please monitor closely.",
		Status:   entities.AnalysisOK,
	}}
	fx := newTriageFixture(t, analysis)

	patient := &entities.PatientContext{Age: intPtr(70), ChronicConditions: []string{"diabetes"}}
	resp, err := fx.service.Analyze(context.Background(), &AnalyzeRequest{
		UserID:  "patient-1",
		Message: "I have a fever",
		Patient: patient,
	})
	require.NoError(t, err)

	// fever 20 + elderly 10 + one chronic condition 8
	assert.Equal(t, 38, resp.Routing.SeverityScore)
	assert.Equal(t, patient, fx.analysis.gotPatient)
	assert.Contains(t, resp.Routing.Instructions, "Monitor for complications due to age")
}
