package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

func sampleDecision() *entities.RoutingDecision {
	return &entities.RoutingDecision{
		ID:                  "d-1",
		ConversationID:      "c-1",
		MessageID:           "m-1",
		UserID:              "u-1",
		Symptoms:            []string{"fever", "vomiting"},
		SeverityScore:       40,
		SeverityLevel:       entities.SeverityLow,
		RecommendedFacility: entities.FacilityASHA,
		Reasoning:           "symptom match: fever (+20); symptom match: vomiting (+20)",
		Priority:            entities.PriorityLow,
		Timeframe:           entities.TimeframeWithinDay,
		Instructions:        []string{"Rest and stay hydrated"},
		FollowUp:            "self_monitoring_72h",
		CreatedAt:           time.Now().UTC(),
	}
}

func decisionRowColumns() []string {
	return []string{
		"id", "conversation_id", "message_id", "user_id", "symptoms",
		"severity_score", "severity_level", "emergency_override",
		"recommended_facility", "facility_id", "reasoning", "priority",
		"timeframe", "instructions", "follow_up", "created_at",
	}
}

func TestRoutingDecisionAdapter_Create(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewRoutingDecisionAdapter(client)

	mock.ExpectExec("INSERT INTO routing_decisions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), sampleDecision())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingDecisionAdapter_GetByID(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewRoutingDecisionAdapter(client)

	created := time.Now().UTC()
	rows := sqlmock.NewRows(decisionRowColumns()).AddRow(
		"d-1", "c-1", "m-1", "u-1", []byte(`{fever,vomiting}`),
		40, "low", false,
		"ASHA", nil, "symptom match: fever (+20)", "low",
		"within 24 hours", []byte(`{"Rest and stay hydrated"}`), "self_monitoring_72h", created,
	)

	mock.ExpectQuery("SELECT (.+) FROM routing_decisions WHERE id").
		WithArgs("d-1").
		WillReturnRows(rows)

	decision, err := adapter.GetByID(context.Background(), "d-1")
	require.NoError(t, err)

	assert.Equal(t, "d-1", decision.ID)
	assert.Equal(t, []string{"fever", "vomiting"}, decision.Symptoms)
	assert.Equal(t, entities.SeverityLow, decision.SeverityLevel)
	assert.Equal(t, entities.FacilityASHA, decision.RecommendedFacility)
	assert.Equal(t, []string{"Rest and stay hydrated"}, decision.Instructions)
	assert.Nil(t, decision.FacilityID)
}

func TestRoutingDecisionAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewRoutingDecisionAdapter(client)

	mock.ExpectQuery("SELECT (.+) FROM routing_decisions WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(decisionRowColumns()))

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestRoutingDecisionAdapter_ListByConversation(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewRoutingDecisionAdapter(client)

	created := time.Now().UTC()
	rows := sqlmock.NewRows(decisionRowColumns()).
		AddRow("d-2", "c-1", "m-2", "u-1", []byte(`{"chest pain"}`),
			90, "critical", true,
			"EMERGENCY", nil, "emergency keyword detected", "critical",
			"immediate", []byte(`{"Call 108 immediately for ambulance"}`), "hospital_admission", created).
		AddRow("d-1", "c-1", "m-1", "u-1", []byte(`{fever}`),
			20, "low", false,
			"ASHA", nil, "symptom match: fever (+20)", "low",
			"within 24 hours", []byte(`{"Rest and stay hydrated"}`), "self_monitoring_72h", created.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM routing_decisions(.+)WHERE conversation_id").
		WithArgs("c-1").
		WillReturnRows(rows)

	decisions, err := adapter.ListByConversation(context.Background(), "c-1")
	require.NoError(t, err)

	require.Len(t, decisions, 2)
	assert.Equal(t, "d-2", decisions[0].ID, "newest first")
	assert.Equal(t, entities.SeverityCritical, decisions[0].SeverityLevel)
	assert.Equal(t, []string{"chest pain"}, decisions[0].Symptoms)
}
