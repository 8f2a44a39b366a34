package providers

import (
	"context"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
)

// TriageEvent is the payload published when a worker notification is
// created; the in-app channel delivers it to the worker's device stream.
type TriageEvent struct {
	NotificationID    string            `json:"notification_id"`
	RoutingDecisionID string            `json:"routing_decision_id"`
	WorkerID          string            `json:"worker_id"`
	Priority          entities.Priority `json:"priority"`
	PatientSummary    string            `json:"patient_summary"`
}

// EventBus defines the interface for publishing and subscribing to
// triage events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *TriageEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *TriageEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelWorkerPrefix is the prefix for worker-specific channels
const EventChannelWorkerPrefix = "worker:"

// GetWorkerChannel returns the channel name for a specific worker
func GetWorkerChannel(workerID string) string {
	return EventChannelWorkerPrefix + workerID
}
