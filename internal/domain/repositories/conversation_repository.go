package repositories

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// ConversationRepository defines the append-only conversation recorder.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *entities.Conversation) error
	GetConversation(ctx context.Context, id string) (*entities.Conversation, error)
	AppendMessage(ctx context.Context, message *entities.ConversationMessage) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*entities.ConversationMessage, error)
}
