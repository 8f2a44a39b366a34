package providers

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// ChannelSender delivers a worker notification over one channel and
// returns a gateway message id on success.
type ChannelSender interface {
	Channel() entities.NotificationChannel
	Send(ctx context.Context, worker *entities.HealthWorker, notification *entities.WorkerNotification) (string, error)
}
