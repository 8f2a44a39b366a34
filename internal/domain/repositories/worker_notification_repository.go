package repositories

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// WorkerNotificationRepository defines the interface for worker notification
// persistence. Create must enforce at most one notification per routing
// decision; a duplicate insert returns a conflict error.
type WorkerNotificationRepository interface {
	Create(ctx context.Context, notification *entities.WorkerNotification) error
	GetByID(ctx context.Context, id string) (*entities.WorkerNotification, error)
	GetByRoutingDecision(ctx context.Context, routingDecisionID string) (*entities.WorkerNotification, error)
	UpdateStatus(ctx context.Context, notification *entities.WorkerNotification) error
	RecordDelivery(ctx context.Context, notificationID string, delivery *entities.ChannelDelivery) error
	StatsByWorker(ctx context.Context, workerID string) (*entities.NotificationStats, error)
}
