package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

func sampleNotification() *entities.WorkerNotification {
	return &entities.WorkerNotification{
		ID:                "n-1",
		WorkerID:          "w-1",
		WorkerType:        entities.WorkerPHCDoctor,
		PatientID:         "p-1",
		RoutingDecisionID: "d-1",
		Priority:          entities.PriorityHigh,
		PatientSummary:    "high severity (score 70)",
		Status:            entities.NotificationPending,
		SentVia:           []entities.NotificationChannel{},
		CreatedAt:         time.Now().UTC(),
	}
}

func TestWorkerNotificationAdapter_Create(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	mock.ExpectExec("INSERT INTO worker_notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.Create(context.Background(), sampleNotification())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerNotificationAdapter_Create_DuplicateDecision(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	mock.ExpectExec("INSERT INTO worker_notifications").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "worker_notifications_routing_decision_id_key"})

	err := adapter.Create(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
}

func TestWorkerNotificationAdapter_GetByID_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	mock.ExpectQuery("SELECT (.+) FROM worker_notifications WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := adapter.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestWorkerNotificationAdapter_GetByID(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "worker_id", "worker_type", "patient_id", "routing_decision_id",
		"priority", "patient_summary", "status", "sent_via", "response_text",
		"created_at", "acknowledged_at", "responded_at",
	}).AddRow(
		"n-1", "w-1", "phc_doctor", "p-1", "d-1",
		"high", "summary", "pending", []byte(`{app,sms}`), nil,
		created, nil, nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM worker_notifications WHERE id").
		WithArgs("n-1").
		WillReturnRows(rows)

	notification, err := adapter.GetByID(context.Background(), "n-1")
	require.NoError(t, err)

	assert.Equal(t, "n-1", notification.ID)
	assert.Equal(t, entities.WorkerPHCDoctor, notification.WorkerType)
	assert.Equal(t, entities.NotificationPending, notification.Status)
	assert.Equal(t, []entities.NotificationChannel{entities.ChannelApp, entities.ChannelSMS}, notification.SentVia)
	assert.Nil(t, notification.AcknowledgedAt)
}

func TestWorkerNotificationAdapter_UpdateStatus_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	mock.ExpectExec("UPDATE worker_notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	notification := sampleNotification()
	err := adapter.UpdateStatus(context.Background(), notification)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestWorkerNotificationAdapter_RecordDelivery(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	mock.ExpectExec("INSERT INTO notification_deliveries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	messageID := "gw-123"
	err := adapter.RecordDelivery(context.Background(), "n-1", &entities.ChannelDelivery{
		Channel:   entities.ChannelSMS,
		Status:    entities.DeliverySent,
		Attempts:  2,
		MessageID: &messageID,
		SentAt:    &now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerNotificationAdapter_StatsByWorker(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	rows := sqlmock.NewRows([]string{"pending", "acknowledged", "avg_response"}).
		AddRow(3, 7, 42.5)

	mock.ExpectQuery("SELECT(.+)FROM worker_notifications(.+)WHERE worker_id").
		WithArgs("w-1").
		WillReturnRows(rows)

	stats, err := adapter.StatsByWorker(context.Background(), "w-1")
	require.NoError(t, err)

	assert.Equal(t, "w-1", stats.WorkerID)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 7, stats.Acknowledged)
	assert.InDelta(t, 42.5, stats.AvgResponseTimeSecs, 0.001)
}

func TestWorkerNotificationAdapter_StatsByWorker_NoHistory(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewWorkerNotificationAdapter(client)

	rows := sqlmock.NewRows([]string{"pending", "acknowledged", "avg_response"}).
		AddRow(0, 0, nil)

	mock.ExpectQuery("SELECT(.+)FROM worker_notifications(.+)WHERE worker_id").
		WithArgs("w-1").
		WillReturnRows(rows)

	stats, err := adapter.StatsByWorker(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Zero(t, stats.AvgResponseTimeSecs)
}
