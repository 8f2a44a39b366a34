package entities

import "time"

// NotificationChannel is a delivery channel for worker notifications
type NotificationChannel string

const (
	ChannelApp  NotificationChannel = "app"
	ChannelSMS  NotificationChannel = "sms"
	ChannelCall NotificationChannel = "call"
)

// NotificationStatus is the worker-facing lifecycle of a notification
type NotificationStatus string

const (
	NotificationPending      NotificationStatus = "pending"
	NotificationAcknowledged NotificationStatus = "acknowledged"
	NotificationResponded    NotificationStatus = "responded"
	NotificationCompleted    NotificationStatus = "completed"
)

// DeliveryStatus is the per-channel delivery outcome
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// ChannelDelivery records the outcome of delivery attempts on one channel
type ChannelDelivery struct {
	Channel      NotificationChannel `json:"channel" db:"channel"`
	Status       DeliveryStatus      `json:"status" db:"status"`
	Attempts     int                 `json:"attempts" db:"attempts"`
	MessageID    *string             `json:"message_id,omitempty" db:"message_id"`
	ErrorMessage *string             `json:"error_message,omitempty" db:"error_message"`
	SentAt       *time.Time          `json:"sent_at,omitempty" db:"sent_at"`
}

// WorkerNotification is the record created by the dispatcher for a routing
// decision. At most one exists per decision; the notification row survives
// even when every channel delivery fails.
type WorkerNotification struct {
	ID                string                `json:"id" db:"id"`
	WorkerID          string                `json:"worker_id" db:"worker_id"`
	WorkerType        WorkerType            `json:"worker_type" db:"worker_type"`
	PatientID         string                `json:"patient_id" db:"patient_id"`
	RoutingDecisionID string                `json:"routing_decision_id" db:"routing_decision_id"`
	Priority          Priority              `json:"priority" db:"priority"`
	PatientSummary    string                `json:"patient_summary" db:"patient_summary"`
	Status            NotificationStatus    `json:"status" db:"status"`
	SentVia           []NotificationChannel `json:"sent_via" db:"sent_via"`
	Deliveries        []ChannelDelivery     `json:"deliveries,omitempty"`
	ResponseText      *string               `json:"response_text,omitempty" db:"response_text"`
	CreatedAt         time.Time             `json:"created_at" db:"created_at"`
	AcknowledgedAt    *time.Time            `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	RespondedAt       *time.Time            `json:"responded_at,omitempty" db:"responded_at"`
}

// NotificationStats aggregates a worker's notification load
type NotificationStats struct {
	WorkerID            string  `json:"worker_id"`
	Pending             int     `json:"pending"`
	Acknowledged        int     `json:"acknowledged"`
	AvgResponseTimeSecs float64 `json:"avg_response_time_seconds"`
}
