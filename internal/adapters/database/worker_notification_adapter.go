package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations; the routing_decision_id unique index turns a duplicate
// dispatch into this.
const pgUniqueViolation = "23505"

// WorkerNotificationAdapter implements the WorkerNotificationRepository interface
type WorkerNotificationAdapter struct {
	client *postgres.Client
	dbx    *sqlx.DB
}

// NewWorkerNotificationAdapter creates a new worker notification adapter
func NewWorkerNotificationAdapter(client *postgres.Client) repositories.WorkerNotificationRepository {
	return &WorkerNotificationAdapter{
		client: client,
		dbx:    sqlx.NewDb(client.DB(), "postgres"),
	}
}

// Create persists a worker notification. The unique index on
// routing_decision_id is the durable idempotency backstop: a second
// insert for the same decision returns a conflict error.
func (a *WorkerNotificationAdapter) Create(ctx context.Context, notification *entities.WorkerNotification) error {
	sentVia := make([]string, len(notification.SentVia))
	for i, channel := range notification.SentVia {
		sentVia[i] = string(channel)
	}

	query := `
		INSERT INTO worker_notifications (
			id, worker_id, worker_type, patient_id, routing_decision_id,
			priority, patient_summary, status, sent_via, response_text,
			created_at, acknowledged_at, responded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		notification.ID,
		notification.WorkerID,
		notification.WorkerType,
		notification.PatientID,
		notification.RoutingDecisionID,
		notification.Priority,
		notification.PatientSummary,
		notification.Status,
		pq.Array(sentVia),
		notification.ResponseText,
		notification.CreatedAt,
		notification.AcknowledgedAt,
		notification.RespondedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return apperrors.NewConflictError(fmt.Sprintf(
				"notification for routing decision %s already exists", notification.RoutingDecisionID))
		}
		return apperrors.NewInternalError("failed to create worker notification", err)
	}

	return nil
}

const workerNotificationColumns = `
	id, worker_id, worker_type, patient_id, routing_decision_id,
	priority, patient_summary, status, sent_via, response_text,
	created_at, acknowledged_at, responded_at
`

// GetByID retrieves a notification by ID
func (a *WorkerNotificationAdapter) GetByID(ctx context.Context, id string) (*entities.WorkerNotification, error) {
	query := `SELECT ` + workerNotificationColumns + ` FROM worker_notifications WHERE id = $1`

	notification, err := scanWorkerNotification(a.client.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get worker notification", err)
	}

	return notification, nil
}

// GetByRoutingDecision retrieves the notification created for a decision
func (a *WorkerNotificationAdapter) GetByRoutingDecision(ctx context.Context, routingDecisionID string) (*entities.WorkerNotification, error) {
	query := `SELECT ` + workerNotificationColumns + ` FROM worker_notifications WHERE routing_decision_id = $1`

	notification, err := scanWorkerNotification(a.client.DB().QueryRowContext(ctx, query, routingDecisionID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf(
			"no notification for routing decision %s", routingDecisionID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get worker notification", err)
	}

	return notification, nil
}

// UpdateStatus updates the worker-facing lifecycle fields
func (a *WorkerNotificationAdapter) UpdateStatus(ctx context.Context, notification *entities.WorkerNotification) error {
	query := `
		UPDATE worker_notifications
		SET status = $2, response_text = $3, acknowledged_at = $4, responded_at = $5
		WHERE id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query,
		notification.ID,
		notification.Status,
		notification.ResponseText,
		notification.AcknowledgedAt,
		notification.RespondedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to update worker notification", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to update worker notification", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification with id %s not found", notification.ID))
	}

	return nil
}

// RecordDelivery upserts the delivery outcome for one channel
func (a *WorkerNotificationAdapter) RecordDelivery(ctx context.Context, notificationID string, delivery *entities.ChannelDelivery) error {
	query := `
		INSERT INTO notification_deliveries (
			notification_id, channel, status, attempts, message_id, error_message, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (notification_id, channel) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			message_id = EXCLUDED.message_id,
			error_message = EXCLUDED.error_message,
			sent_at = EXCLUDED.sent_at
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		notificationID,
		delivery.Channel,
		delivery.Status,
		delivery.Attempts,
		delivery.MessageID,
		delivery.ErrorMessage,
		delivery.SentAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to record channel delivery", err)
	}

	return nil
}

// StatsByWorker aggregates a worker's notification counters
func (a *WorkerNotificationAdapter) StatsByWorker(ctx context.Context, workerID string) (*entities.NotificationStats, error) {
	var row struct {
		Pending      int             `db:"pending"`
		Acknowledged int             `db:"acknowledged"`
		AvgResponse  sql.NullFloat64 `db:"avg_response"`
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status <> 'pending') AS acknowledged,
			AVG(EXTRACT(EPOCH FROM (acknowledged_at - created_at)))
				FILTER (WHERE acknowledged_at IS NOT NULL) AS avg_response
		FROM worker_notifications
		WHERE worker_id = $1
	`

	if err := a.dbx.GetContext(ctx, &row, query, workerID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate notification stats", err)
	}

	stats := &entities.NotificationStats{
		WorkerID:     workerID,
		Pending:      row.Pending,
		Acknowledged: row.Acknowledged,
	}
	if row.AvgResponse.Valid {
		stats.AvgResponseTimeSecs = row.AvgResponse.Float64
	}

	return stats, nil
}

func scanWorkerNotification(row rowScanner) (*entities.WorkerNotification, error) {
	notification := &entities.WorkerNotification{}
	var sentVia []string

	err := row.Scan(
		&notification.ID,
		&notification.WorkerID,
		&notification.WorkerType,
		&notification.PatientID,
		&notification.RoutingDecisionID,
		&notification.Priority,
		&notification.PatientSummary,
		&notification.Status,
		pq.Array(&sentVia),
		&notification.ResponseText,
		&notification.CreatedAt,
		&notification.AcknowledgedAt,
		&notification.RespondedAt,
	)
	if err != nil {
		return nil, err
	}

	notification.SentVia = make([]entities.NotificationChannel, len(sentVia))
	for i, channel := range sentVia {
		notification.SentVia[i] = entities.NotificationChannel(channel)
	}

	return notification, nil
}
