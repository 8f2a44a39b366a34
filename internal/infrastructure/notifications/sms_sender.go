package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/pkg/config"
)

// SMSGatewaySender sends worker alerts through an HTTP SMS gateway
type SMSGatewaySender struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

// NewSMSGatewaySender creates a new SMS sender
func NewSMSGatewaySender(cfg *config.SMSConfig) (*SMSGatewaySender, error) {
	if cfg == nil || cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("SMS gateway URL and API key must be set")
	}

	return &SMSGatewaySender{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Channel identifies this sender as the SMS channel
func (s *SMSGatewaySender) Channel() entities.NotificationChannel {
	return entities.ChannelSMS
}

type smsMessage struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// Send delivers one notification over SMS and returns the gateway
// message id.
func (s *SMSGatewaySender) Send(ctx context.Context, worker *entities.HealthWorker, notification *entities.WorkerNotification) (string, error) {
	if worker.Phone == "" {
		return "", fmt.Errorf("worker %s has no phone number", worker.ID)
	}

	message := smsMessage{
		To:       worker.Phone,
		From:     s.senderID,
		Body:     renderWorkerAlert(notification),
		Priority: string(notification.Priority),
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("SMS gateway error (status %d): %s", resp.StatusCode, string(body))
	}

	var gatewayResp smsResponse
	if err := json.Unmarshal(body, &gatewayResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if gatewayResp.MessageID == "" {
		return "", fmt.Errorf("no message ID in response")
	}

	return gatewayResp.MessageID, nil
}

// renderWorkerAlert renders the short alert text shared by the SMS and
// voice channels.
func renderWorkerAlert(notification *entities.WorkerNotification) string {
	return fmt.Sprintf(
		"[%s] New patient referral. %s Respond in the HealthBridge app, ref %s.",
		notification.Priority,
		notification.PatientSummary,
		notification.ID,
	)
}
