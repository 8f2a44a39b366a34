package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// ConversationAdapter implements the append-only ConversationRepository
type ConversationAdapter struct {
	client *postgres.Client
}

// NewConversationAdapter creates a new conversation adapter
func NewConversationAdapter(client *postgres.Client) repositories.ConversationRepository {
	return &ConversationAdapter{
		client: client,
	}
}

// CreateConversation starts a new conversation
func (a *ConversationAdapter) CreateConversation(ctx context.Context, conversation *entities.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		conversation.ID,
		conversation.UserID,
		conversation.Language,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to create conversation", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID
func (a *ConversationAdapter) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	query := `
		SELECT id, user_id, language, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	conversation := &entities.Conversation{}
	err := a.client.DB().QueryRowContext(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Language,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("conversation with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get conversation", err)
	}

	return conversation, nil
}

// AppendMessage appends one turn; messages are never edited
func (a *ConversationAdapter) AppendMessage(ctx context.Context, message *entities.ConversationMessage) error {
	query := `
		INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		message.CreatedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to append conversation message", err)
	}

	return nil
}

// ListMessages returns the most recent messages of a conversation in
// chronological order.
func (a *ConversationAdapter) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entities.ConversationMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := a.client.DB().QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list conversation messages", err)
	}
	defer rows.Close()

	var messages []*entities.ConversationMessage
	for rows.Next() {
		message := &entities.ConversationMessage{}
		err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.Role,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan conversation message", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate conversation messages", err)
	}

	return messages, nil
}
