package notifications

import (
	"context"
	"fmt"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/providers"
)

// InAppSender delivers notifications to the worker's device stream by
// publishing a triage event on the event bus. This is the one channel
// used for every priority.
type InAppSender struct {
	bus providers.EventBus
}

// NewInAppSender creates a new in-app sender
func NewInAppSender(bus providers.EventBus) *InAppSender {
	return &InAppSender{bus: bus}
}

// Channel identifies this sender as the in-app channel
func (s *InAppSender) Channel() entities.NotificationChannel {
	return entities.ChannelApp
}

// Send publishes the notification on the worker's event channel. The
// returned id is the notification id itself; the bus has no per-message
// receipt.
func (s *InAppSender) Send(ctx context.Context, worker *entities.HealthWorker, notification *entities.WorkerNotification) (string, error) {
	event := &providers.TriageEvent{
		NotificationID:    notification.ID,
		RoutingDecisionID: notification.RoutingDecisionID,
		WorkerID:          worker.ID,
		Priority:          notification.Priority,
		PatientSummary:    notification.PatientSummary,
	}

	if err := s.bus.Publish(ctx, providers.GetWorkerChannel(worker.ID), event); err != nil {
		return "", fmt.Errorf("failed to publish in-app notification: %w", err)
	}

	return notification.ID, nil
}
