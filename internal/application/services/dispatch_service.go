package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/providers"
	"github.com/healthbridge/HealthBridge/backend/internal/domain/repositories"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
	"github.com/healthbridge/HealthBridge/backend/pkg/retry"
)

// dispatchGuardTTL bounds how long a crashed dispatch can hold the
// dedupe slot before a retry is allowed through to the DB backstop.
const dispatchGuardTTL = 10 * time.Minute

// dispatchTimeout bounds one dispatch end to end, including every
// channel's retry budget.
const dispatchTimeout = 3 * time.Minute

// escalationOrder lists, per worker type, the pools tried when the
// preferred tier has nobody on duty. Escalation only ever goes upward.
var escalationOrder = map[entities.WorkerType][]entities.WorkerType{
	entities.WorkerASHA:      {entities.WorkerASHA, entities.WorkerPHCDoctor},
	entities.WorkerPHCDoctor: {entities.WorkerPHCDoctor, entities.WorkerCHCDoctor},
	entities.WorkerCHCDoctor: {entities.WorkerCHCDoctor, entities.WorkerEmergency},
	entities.WorkerEmergency: {entities.WorkerEmergency},
}

// dispatchJob is one unit of work on the dispatch queue
type dispatchJob struct {
	decision *entities.RoutingDecision
	district string
}

// DispatchService delivers routing decisions to healthcare workers. It
// owns a bounded queue drained by a fixed worker pool; enqueueing never
// blocks the triage response path. Dispatch is idempotent per routing
// decision: the Redis guard suppresses fast duplicates and the DB unique
// index backstops the guard.
type DispatchService struct {
	notificationRepo repositories.WorkerNotificationRepository
	workerRepo       repositories.WorkerRepository
	guard            providers.DispatchGuard
	senders          map[entities.NotificationChannel]providers.ChannelSender
	metrics          *observability.Metrics

	queue chan dispatchJob
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatchService creates a new dispatch service. Start must be
// called before any Enqueue.
func NewDispatchService(
	notificationRepo repositories.WorkerNotificationRepository,
	workerRepo repositories.WorkerRepository,
	guard providers.DispatchGuard,
	senders []providers.ChannelSender,
	queueSize int,
	metrics *observability.Metrics,
) *DispatchService {
	if queueSize <= 0 {
		queueSize = 256
	}

	byChannel := make(map[entities.NotificationChannel]providers.ChannelSender, len(senders))
	for _, sender := range senders {
		byChannel[sender.Channel()] = sender
	}

	return &DispatchService{
		notificationRepo: notificationRepo,
		workerRepo:       workerRepo,
		guard:            guard,
		senders:          byChannel,
		metrics:          metrics,
		queue:            make(chan dispatchJob, queueSize),
	}
}

// Start launches the worker pool
func (s *DispatchService) Start(workers int) {
	if workers <= 0 {
		workers = 4
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.run()
	}

	observability.GetLogger().Info().
		Int("workers", workers).
		Int("queue_size", cap(s.queue)).
		Msg("Dispatch worker pool started")
}

// Stop drains the queue and waits for in-flight dispatches. Enqueue
// rejects new work once Stop has begun.
func (s *DispatchService) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	observability.GetLogger().Info().Msg("Dispatch worker pool stopped")
}

// Enqueue hands a persisted routing decision to the dispatch pool. It
// never blocks the caller: a full queue or a stopped pool returns an
// error for the caller to log, since dispatch failures must not affect
// the triage response.
func (s *DispatchService) Enqueue(decision *entities.RoutingDecision, district string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.NewUnavailableError("dispatch queue is shut down", nil)
	}

	select {
	case s.queue <- dispatchJob{decision: decision, district: district}:
		return nil
	default:
		return apperrors.NewUnavailableError("dispatch queue is full", nil)
	}
}

func (s *DispatchService) run() {
	defer s.wg.Done()

	for job := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		s.dispatch(ctx, job.decision, job.district)
		cancel()
	}
}

// dispatch creates and delivers the worker notification for one routing
// decision. Failures are logged, never propagated; the triage caller has
// already received its response.
func (s *DispatchService) dispatch(ctx context.Context, decision *entities.RoutingDecision, district string) {
	logger := observability.GetLogger().With().
		Str("routing_decision_id", decision.ID).
		Str("severity_level", string(decision.SeverityLevel)).
		Logger()

	acquired, err := s.guard.Acquire(ctx, decision.ID, dispatchGuardTTL)
	if err != nil {
		// Guard outage degrades to the DB unique index alone
		logger.Warn().Err(err).Msg("Dispatch guard unavailable, relying on database constraint")
	} else if !acquired {
		logger.Info().Msg("Dispatch already handled for this decision, skipping")
		return
	}

	worker, err := s.claimWorker(ctx, decision, district)
	if err != nil {
		logger.Error().Err(err).Msg("No worker available for dispatch")
		s.releaseGuard(ctx, decision.ID, logger)
		return
	}

	notification := &entities.WorkerNotification{
		ID:                uuid.New().String(),
		WorkerID:          worker.ID,
		WorkerType:        worker.Type,
		PatientID:         decision.UserID,
		RoutingDecisionID: decision.ID,
		Priority:          decision.Priority,
		PatientSummary:    buildPatientSummary(decision),
		Status:            entities.NotificationPending,
		SentVia:           []entities.NotificationChannel{},
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		// A conflict means another dispatch beat us past the guard; give
		// the claimed load back and treat the dispatch as done.
		if apperrors.TypeOf(err) == apperrors.ErrorTypeConflict {
			logger.Info().Msg("Notification already exists for this decision")
			s.releaseLoad(ctx, worker.ID, logger)
			return
		}
		logger.Error().Err(err).Msg("Failed to persist worker notification")
		s.releaseLoad(ctx, worker.ID, logger)
		s.releaseGuard(ctx, decision.ID, logger)
		return
	}

	if s.metrics != nil {
		s.metrics.DispatchCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String("priority", string(decision.Priority)),
			attribute.String("worker_type", string(worker.Type)),
		))
	}

	s.deliver(ctx, worker, notification, logger)
}

// claimWorker atomically claims the least-loaded on-duty worker for the
// decision's tier, escalating upward when the preferred pool is empty.
func (s *DispatchService) claimWorker(ctx context.Context, decision *entities.RoutingDecision, district string) (*entities.HealthWorker, error) {
	preferred := decision.RecommendedFacility.WorkerType()

	var lastErr error
	for _, workerType := range escalationOrder[preferred] {
		worker, err := s.workerRepo.ClaimLeastLoaded(ctx, workerType, district)
		if err == nil {
			return worker, nil
		}
		if apperrors.TypeOf(err) != apperrors.ErrorTypeNotFound {
			return nil, err
		}
		lastErr = err

		// District-scoped pools can be empty while the wider pool is not
		if district != "" {
			worker, err = s.workerRepo.ClaimLeastLoaded(ctx, workerType, "")
			if err == nil {
				return worker, nil
			}
			if apperrors.TypeOf(err) != apperrors.ErrorTypeNotFound {
				return nil, err
			}
			lastErr = err
		}
	}

	return nil, lastErr
}

// deliver pushes the notification over every applicable channel. In-app
// is always attempted; SMS and voice are added for high and critical
// priorities. Channels retry independently and a failed channel never
// rolls back the notification record.
func (s *DispatchService) deliver(ctx context.Context, worker *entities.HealthWorker, notification *entities.WorkerNotification, logger zerolog.Logger) {
	channels := []entities.NotificationChannel{entities.ChannelApp}
	if notification.Priority == entities.PriorityHigh || notification.Priority == entities.PriorityCritical {
		channels = append(channels, entities.ChannelSMS, entities.ChannelCall)
	}

	var sentVia []entities.NotificationChannel
	for _, channel := range channels {
		sender, ok := s.senders[channel]
		if !ok {
			continue
		}

		delivery := s.sendWithRetry(ctx, sender, worker, notification, logger)
		if delivery.Status == entities.DeliverySent {
			sentVia = append(sentVia, channel)
		} else if s.metrics != nil {
			s.metrics.DispatchFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("channel", string(channel)),
			))
		}

		if err := s.notificationRepo.RecordDelivery(ctx, notification.ID, delivery); err != nil {
			logger.Error().Err(err).
				Str("channel", string(channel)).
				Msg("Failed to record channel delivery")
		}
	}

	if len(sentVia) > 0 {
		notification.SentVia = sentVia
		if err := s.notificationRepo.UpdateStatus(ctx, notification); err != nil {
			logger.Error().Err(err).Msg("Failed to record delivered channels")
		}
	}

	logger.Info().
		Str("notification_id", notification.ID).
		Str("worker_id", worker.ID).
		Int("channels_sent", len(sentVia)).
		Int("channels_attempted", len(channels)).
		Msg("Worker notification dispatched")
}

func (s *DispatchService) sendWithRetry(ctx context.Context, sender providers.ChannelSender, worker *entities.HealthWorker, notification *entities.WorkerNotification, logger zerolog.Logger) *entities.ChannelDelivery {
	channel := sender.Channel()
	delivery := &entities.ChannelDelivery{
		Channel: channel,
		Status:  entities.DeliveryFailed,
	}

	var messageID string
	err := retry.DoWithLog(ctx, retry.ChannelConfig(), string(channel),
		func() error {
			delivery.Attempts++
			var sendErr error
			messageID, sendErr = sender.Send(ctx, worker, notification)
			return sendErr
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).
				Str("channel", string(channel)).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("Channel delivery attempt failed")
		},
	)

	now := time.Now().UTC()
	delivery.SentAt = &now

	if err != nil {
		msg := err.Error()
		delivery.ErrorMessage = &msg
		logger.Error().Err(err).
			Str("channel", string(channel)).
			Int("attempts", delivery.Attempts).
			Msg("Channel delivery exhausted retries")
		return delivery
	}

	delivery.Status = entities.DeliverySent
	if messageID != "" {
		delivery.MessageID = &messageID
	}
	return delivery
}

// Acknowledge marks a notification as seen by its worker and releases
// the load slot claimed at dispatch time. Re-acknowledging is a no-op on
// status and does not release the slot twice.
func (s *DispatchService) Acknowledge(ctx context.Context, notificationID, workerID string) (*entities.WorkerNotification, error) {
	notification, err := s.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	if notification.WorkerID != workerID {
		return nil, apperrors.NewValidationError("notification does not belong to this worker")
	}

	if notification.Status != entities.NotificationPending {
		return notification, nil
	}

	now := time.Now().UTC()
	notification.Status = entities.NotificationAcknowledged
	notification.AcknowledgedAt = &now

	if err := s.notificationRepo.UpdateStatus(ctx, notification); err != nil {
		return nil, err
	}

	if err := s.workerRepo.ReleaseLoad(ctx, workerID); err != nil {
		observability.GetLogger().Warn().Err(err).
			Str("worker_id", workerID).
			Msg("Failed to release worker load on acknowledgment")
	}

	return notification, nil
}

// Respond records the worker's free-text response to a notification
func (s *DispatchService) Respond(ctx context.Context, notificationID, workerID, responseText string) (*entities.WorkerNotification, error) {
	if responseText == "" {
		return nil, apperrors.NewValidationError("response text is required")
	}

	notification, err := s.Acknowledge(ctx, notificationID, workerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	notification.Status = entities.NotificationResponded
	notification.ResponseText = &responseText
	notification.RespondedAt = &now

	if err := s.notificationRepo.UpdateStatus(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// Stats returns a worker's notification counters
func (s *DispatchService) Stats(ctx context.Context, workerID string) (*entities.NotificationStats, error) {
	if _, err := s.workerRepo.GetByID(ctx, workerID); err != nil {
		return nil, err
	}
	return s.notificationRepo.StatsByWorker(ctx, workerID)
}

func (s *DispatchService) releaseGuard(ctx context.Context, decisionID string, logger zerolog.Logger) {
	if err := s.guard.Release(ctx, decisionID); err != nil {
		logger.Warn().Err(err).Msg("Failed to release dispatch guard")
	}
}

func (s *DispatchService) releaseLoad(ctx context.Context, workerID string, logger zerolog.Logger) {
	if err := s.workerRepo.ReleaseLoad(ctx, workerID); err != nil {
		logger.Warn().Err(err).
			Str("worker_id", workerID).
			Msg("Failed to release worker load")
	}
}

func buildPatientSummary(decision *entities.RoutingDecision) string {
	symptoms := "no specific symptoms"
	if len(decision.Symptoms) > 0 {
		symptoms = fmt.Sprintf("symptoms: %v", decision.Symptoms)
	}
	return fmt.Sprintf("%s severity (score %d), %s, respond %s",
		decision.SeverityLevel, decision.SeverityScore, symptoms, decision.Timeframe)
}
