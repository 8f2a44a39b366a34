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

func TestConversationAdapter_CreateConversation(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewConversationAdapter(client)

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("c-1", "u-1", "hi", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.CreateConversation(context.Background(), &entities.Conversation{
		ID:        "c-1",
		UserID:    "u-1",
		Language:  "hi",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationAdapter_GetConversation_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewConversationAdapter(client)

	mock.ExpectQuery("SELECT (.+) FROM conversations").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "language", "created_at", "updated_at"}))

	_, err := adapter.GetConversation(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestConversationAdapter_AppendMessage(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewConversationAdapter(client)

	mock.ExpectExec("INSERT INTO conversation_messages").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.AppendMessage(context.Background(), &entities.ConversationMessage{
		ID:             "m-1",
		ConversationID: "c-1",
		Role:           entities.RoleUser,
		Content:        "I have a fever",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationAdapter_ListMessages(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewConversationAdapter(client)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow("m-1", "c-1", "user", "I have a fever", now.Add(-time.Minute)).
		AddRow("m-2", "c-1", "assistant", "How long have you had it?", now)

	mock.ExpectQuery("SELECT (.+) FROM(.+)conversation_messages").
		WithArgs("c-1", 20).
		WillReturnRows(rows)

	messages, err := adapter.ListMessages(context.Background(), "c-1", 0)
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, entities.RoleUser, messages[0].Role)
	assert.Equal(t, entities.RoleAssistant, messages[1].Role)
	assert.True(t, messages[0].CreatedAt.Before(messages[1].CreatedAt), "chronological order")
}
