package repositories

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// RoutingDecisionRepository defines the interface for routing decision persistence.
type RoutingDecisionRepository interface {
	Create(ctx context.Context, decision *entities.RoutingDecision) error
	GetByID(ctx context.Context, id string) (*entities.RoutingDecision, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*entities.RoutingDecision, error)
}
