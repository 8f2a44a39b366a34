package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// RoutingDecisionAdapter implements the RoutingDecisionRepository interface
type RoutingDecisionAdapter struct {
	client *postgres.Client
}

// NewRoutingDecisionAdapter creates a new routing decision adapter
func NewRoutingDecisionAdapter(client *postgres.Client) repositories.RoutingDecisionRepository {
	return &RoutingDecisionAdapter{
		client: client,
	}
}

// Create persists a routing decision. Decisions are immutable; there is
// no update path.
func (a *RoutingDecisionAdapter) Create(ctx context.Context, decision *entities.RoutingDecision) error {
	query := `
		INSERT INTO routing_decisions (
			id, conversation_id, message_id, user_id, symptoms,
			severity_score, severity_level, emergency_override,
			recommended_facility, facility_id, reasoning, priority,
			timeframe, instructions, follow_up, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		decision.ID,
		decision.ConversationID,
		decision.MessageID,
		decision.UserID,
		pq.Array(decision.Symptoms),
		decision.SeverityScore,
		decision.SeverityLevel,
		decision.EmergencyOverride,
		decision.RecommendedFacility,
		decision.FacilityID,
		decision.Reasoning,
		decision.Priority,
		decision.Timeframe,
		pq.Array(decision.Instructions),
		decision.FollowUp,
		decision.CreatedAt,
	)

	if err != nil {
		return apperrors.NewInternalError("failed to create routing decision", err)
	}

	return nil
}

const routingDecisionColumns = `
	id, conversation_id, message_id, user_id, symptoms,
	severity_score, severity_level, emergency_override,
	recommended_facility, facility_id, reasoning, priority,
	timeframe, instructions, follow_up, created_at
`

// GetByID retrieves a routing decision by ID
func (a *RoutingDecisionAdapter) GetByID(ctx context.Context, id string) (*entities.RoutingDecision, error) {
	query := `SELECT ` + routingDecisionColumns + ` FROM routing_decisions WHERE id = $1`

	decision, err := scanRoutingDecision(a.client.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("routing decision with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get routing decision", err)
	}

	return decision, nil
}

// ListByConversation retrieves all decisions for a conversation, newest first
func (a *RoutingDecisionAdapter) ListByConversation(ctx context.Context, conversationID string) ([]*entities.RoutingDecision, error) {
	query := `SELECT ` + routingDecisionColumns + `
		FROM routing_decisions
		WHERE conversation_id = $1
		ORDER BY created_at DESC
	`

	rows, err := a.client.DB().QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list routing decisions", err)
	}
	defer rows.Close()

	var decisions []*entities.RoutingDecision
	for rows.Next() {
		decision, err := scanRoutingDecision(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan routing decision", err)
		}
		decisions = append(decisions, decision)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate routing decisions", err)
	}

	return decisions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoutingDecision(row rowScanner) (*entities.RoutingDecision, error) {
	decision := &entities.RoutingDecision{}
	err := row.Scan(
		&decision.ID,
		&decision.ConversationID,
		&decision.MessageID,
		&decision.UserID,
		pq.Array(&decision.Symptoms),
		&decision.SeverityScore,
		&decision.SeverityLevel,
		&decision.EmergencyOverride,
		&decision.RecommendedFacility,
		&decision.FacilityID,
		&decision.Reasoning,
		&decision.Priority,
		&decision.Timeframe,
		pq.Array(&decision.Instructions),
		&decision.FollowUp,
		&decision.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return decision, nil
}
