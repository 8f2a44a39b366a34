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

// VoiceCallSender places automated calls through a voice gateway; used
// only for high and critical priority notifications.
type VoiceCallSender struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewVoiceCallSender creates a new voice call sender
func NewVoiceCallSender(cfg *config.VoiceConfig) (*VoiceCallSender, error) {
	if cfg == nil || cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("voice gateway URL and API key must be set")
	}

	return &VoiceCallSender{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Channel identifies this sender as the voice call channel
func (s *VoiceCallSender) Channel() entities.NotificationChannel {
	return entities.ChannelCall
}

type voiceCallRequest struct {
	To     string `json:"to"`
	Script string `json:"script"`
	Loop   int    `json:"loop"`
}

type voiceCallResponse struct {
	CallID string `json:"call_id"`
}

// Send places one automated call and returns the gateway call id.
func (s *VoiceCallSender) Send(ctx context.Context, worker *entities.HealthWorker, notification *entities.WorkerNotification) (string, error) {
	if worker.Phone == "" {
		return "", fmt.Errorf("worker %s has no phone number", worker.ID)
	}

	call := voiceCallRequest{
		To:     worker.Phone,
		Script: renderWorkerAlert(notification),
		Loop:   2,
	}

	jsonData, err := json.Marshal(call)
	if err != nil {
		return "", fmt.Errorf("failed to marshal call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/calls", bytes.NewBuffer(jsonData))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("voice gateway error (status %d): %s", resp.StatusCode, string(body))
	}

	var callResp voiceCallResponse
	if err := json.Unmarshal(body, &callResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if callResp.CallID == "" {
		return "", fmt.Errorf("no call ID in response")
	}

	return callResp.CallID, nil
}
