package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/providers"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// historyTurns is how many prior messages are replayed to the analysis
// provider as conversation context.
const historyTurns = 10

// AnalyzeRequest is the input to one triage turn
type AnalyzeRequest struct {
	UserID         string                   `json:"user_id"`
	Message        string                   `json:"message"`
	ConversationID string                   `json:"conversation_id,omitempty"`
	Language       string                   `json:"language,omitempty"`
	District       string                   `json:"district,omitempty"`
	Patient        *entities.PatientContext `json:"patient_info,omitempty"`
}

// RoutingBlock is the routing summary returned to the caller
type RoutingBlock struct {
	Severity      entities.SeverityLevel `json:"severity"`
	SeverityScore int                    `json:"severity_score"`
	FacilityType  entities.FacilityType  `json:"facility_type"`
	FacilityID    *string                `json:"facility_id,omitempty"`
	Reasoning     string                 `json:"reasoning"`
	Priority      entities.Priority      `json:"priority"`
	Timeframe     string                 `json:"timeframe"`
	Instructions  []string               `json:"instructions"`
	FollowUp      string                 `json:"follow_up"`
	RedFlags      []string               `json:"red_flags,omitempty"`
}

// AnalyzeResponse is the outcome of one triage turn. Warning is set when
// persistence degraded; the reply and routing are still authoritative.
type AnalyzeResponse struct {
	Response       string       `json:"response"`
	Routing        RoutingBlock `json:"routing"`
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	Warning        string       `json:"warning,omitempty"`
}

// TriageService orchestrates the triage pipeline: analysis, severity
// assessment, routing, persistence, then asynchronous worker dispatch.
// The pipeline is synchronous through decision persistence; dispatch
// completion is never awaited.
type TriageService struct {
	analysis         providers.AnalysisProvider
	severity         *SeverityService
	routing          *RoutingService
	dispatch         *DispatchService
	conversationRepo repositories.ConversationRepository
	decisionRepo     repositories.RoutingDecisionRepository
	metrics          *observability.Metrics
}

// NewTriageService creates a new triage service
func NewTriageService(
	analysis providers.AnalysisProvider,
	severity *SeverityService,
	routing *RoutingService,
	dispatch *DispatchService,
	conversationRepo repositories.ConversationRepository,
	decisionRepo repositories.RoutingDecisionRepository,
	metrics *observability.Metrics,
) *TriageService {
	return &TriageService{
		analysis:         analysis,
		severity:         severity,
		routing:          routing,
		dispatch:         dispatch,
		conversationRepo: conversationRepo,
		decisionRepo:     decisionRepo,
		metrics:          metrics,
	}
}

// Analyze runs one triage turn. Analysis failures degrade, persistence
// failures warn; only input validation rejects the request outright.
func (s *TriageService) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	ctx, span := observability.StartSpan(ctx, "triage.analyze")
	defer span.End()

	logger := observability.LoggerFromContext(ctx)

	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.NewValidationError("message is required")
	}

	var warnings []string

	conversationID, history := s.resolveConversation(ctx, req, &warnings)

	result, err := s.analysis.Analyze(ctx, req.Message, history, req.Patient)
	if err != nil {
		// Only context cancellation and validation surface here; terminal
		// provider failures come back as a degraded result instead.
		return nil, err
	}

	assessment := s.severity.Assess(result, req.Patient)
	decision := s.routing.Route(ctx, assessment, req.Patient, req.District)

	messageID := uuid.New().String()
	decision.ID = uuid.New().String()
	decision.ConversationID = conversationID
	decision.MessageID = messageID
	decision.UserID = req.UserID
	decision.CreatedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.String("triage.severity_level", string(decision.SeverityLevel)),
		attribute.Int("triage.severity_score", decision.SeverityScore),
		attribute.Bool("triage.emergency_override", decision.EmergencyOverride),
	)

	persisted := true
	if err := s.decisionRepo.Create(ctx, decision); err != nil {
		persisted = false
		warnings = append(warnings, "routing decision could not be recorded")
		logger.Error().Err(err).
			Str("routing_decision_id", decision.ID).
			Msg("Failed to persist routing decision")
	}

	s.recordTurn(ctx, conversationID, messageID, req.Message, result.RawReply, &warnings)

	if s.metrics != nil {
		s.metrics.TriageCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("severity_level", string(decision.SeverityLevel)),
			attribute.Bool("degraded", result.IsDegraded()),
		))
	}

	// Dispatch detaches here; the response below never waits for it
	if persisted {
		if err := s.dispatch.Enqueue(decision, req.District); err != nil {
			logger.Error().Err(err).
				Str("routing_decision_id", decision.ID).
				Msg("Failed to enqueue worker dispatch")
		}
	}

	logger.Info().
		Str("conversation_id", conversationID).
		Str("severity_level", string(decision.SeverityLevel)).
		Int("severity_score", decision.SeverityScore).
		Bool("degraded", result.IsDegraded()).
		Str("trace_id", span.SpanContext().TraceID().String()).
		Msg("Triage turn completed")

	return &AnalyzeResponse{
		Response: result.RawReply,
		Routing: RoutingBlock{
			Severity:      decision.SeverityLevel,
			SeverityScore: decision.SeverityScore,
			FacilityType:  decision.RecommendedFacility,
			FacilityID:    decision.FacilityID,
			Reasoning:     decision.Reasoning,
			Priority:      decision.Priority,
			Timeframe:     decision.Timeframe,
			Instructions:  decision.Instructions,
			FollowUp:      decision.FollowUp,
			RedFlags:      assessment.RedFlags,
		},
		ConversationID: conversationID,
		MessageID:      messageID,
		Warning:        strings.Join(warnings, "; "),
	}, nil
}

// History returns the recorded turns of a conversation
func (s *TriageService) History(ctx context.Context, conversationID string, limit int) ([]*entities.ConversationMessage, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apperrors.NewValidationError("conversation_id is required")
	}
	if _, err := s.conversationRepo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversationRepo.ListMessages(ctx, conversationID, limit)
}

// Decisions returns the routing decisions recorded for a conversation
func (s *TriageService) Decisions(ctx context.Context, conversationID string) ([]*entities.RoutingDecision, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apperrors.NewValidationError("conversation_id is required")
	}
	return s.decisionRepo.ListByConversation(ctx, conversationID)
}

// resolveConversation finds or creates the conversation for this turn and
// loads recent history. Conversation continuity is best-effort: any
// failure here degrades to an empty history plus a warning, never a
// rejected request.
func (s *TriageService) resolveConversation(ctx context.Context, req *AnalyzeRequest, warnings *[]string) (string, []entities.ConversationTurn) {
	logger := observability.LoggerFromContext(ctx)

	if req.ConversationID != "" {
		if _, err := s.conversationRepo.GetConversation(ctx, req.ConversationID); err != nil {
			logger.Warn().Err(err).
				Str("conversation_id", req.ConversationID).
				Msg("Conversation lookup failed, continuing without history")
			*warnings = append(*warnings, "conversation history unavailable")
			return req.ConversationID, nil
		}

		messages, err := s.conversationRepo.ListMessages(ctx, req.ConversationID, historyTurns)
		if err != nil {
			logger.Warn().Err(err).
				Str("conversation_id", req.ConversationID).
				Msg("Failed to load conversation history")
			*warnings = append(*warnings, "conversation history unavailable")
			return req.ConversationID, nil
		}

		history := make([]entities.ConversationTurn, 0, len(messages))
		for _, message := range messages {
			history = append(history, entities.ConversationTurn{
				Role:    string(message.Role),
				Content: message.Content,
			})
		}
		return req.ConversationID, history
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	now := time.Now().UTC()
	conversation := &entities.Conversation{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Language:  language,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.conversationRepo.CreateConversation(ctx, conversation); err != nil {
		logger.Warn().Err(err).Msg("Failed to create conversation")
		*warnings = append(*warnings, "conversation could not be recorded")
	}

	return conversation.ID, nil
}

// recordTurn appends the user message and the assistant reply. Both are
// best-effort; a failed append degrades to a warning.
func (s *TriageService) recordTurn(ctx context.Context, conversationID, messageID, userMessage, reply string, warnings *[]string) {
	logger := observability.LoggerFromContext(ctx)
	now := time.Now().UTC()

	userTurn := &entities.ConversationMessage{
		ID:             messageID,
		ConversationID: conversationID,
		Role:           entities.RoleUser,
		Content:        userMessage,
		CreatedAt:      now,
	}
	if err := s.conversationRepo.AppendMessage(ctx, userTurn); err != nil {
		logger.Warn().Err(err).Msg("Failed to record user message")
		*warnings = append(*warnings, "message could not be recorded")
	}

	assistantTurn := &entities.ConversationMessage{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           entities.RoleAssistant,
		Content:        reply,
		CreatedAt:      now.Add(time.Millisecond),
	}
	if err := s.conversationRepo.AppendMessage(ctx, assistantTurn); err != nil {
		logger.Warn().Err(err).Msg("Failed to record assistant reply")
	}
}
