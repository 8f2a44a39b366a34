package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/healthbridge/HealthBridge/backend/internal/domain/entities"
	"github.com/healthbridge/HealthBridge/backend/internal/infrastructure/observability"
	"github.com/healthbridge/HealthBridge/backend/pkg/config"
	apperrors "github.com/healthbridge/HealthBridge/backend/pkg/errors"
	"github.com/healthbridge/HealthBridge/backend/pkg/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultBaseURL = "https://api.openai.com/v1"

// fallbackReply is returned when the provider fails terminally for the
// current turn; it must stay non-alarming.
const fallbackReply = "I could not fully analyze your message right now. " +
	"If you feel unwell, please describe your symptoms again, or contact " +
	"your local health worker."

// Client implements the analysis provider boundary. It owns retry,
// backoff and timeout policy toward the provider; transient failures are
// retried up to 3 attempts and terminal failures degrade to an
// empty-symptom result rather than surfacing to the pipeline.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
	retryCfg   retry.Config
}

// NewClient creates a new analysis client.
func NewClient(cfg *config.AnalysisConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("analysis api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter:  newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		retryCfg: retry.AnalysisConfig(),
	}, nil
}

// SetBaseURL overrides the provider endpoint; used by tests.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

type analysisPayload struct {
	Reply        string   `json:"reply"`
	Symptoms     []string `json:"symptoms"`
	Emergency    bool     `json:"emergency"`
	SeverityHint *int     `json:"severity_hint"`
}

// Analyze sends the user message plus conversation context to the
// provider and returns the extracted result. The returned result is
// tagged degraded when it came from the salvage or fallback path; the
// error return is reserved for caller-side failures (cancellation,
// marshaling), never for provider outages.
func (c *Client) Analyze(ctx context.Context, message string, history []entities.ConversationTurn, patient *entities.PatientContext) (*entities.AnalysisResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewValidationError("message is required")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		recordRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	logger := observability.LoggerFromContext(ctx)

	var result *entities.AnalysisResult
	err := retry.DoWithLog(ctx, c.retryCfg, "analysis", func() error {
		res, attemptErr := c.doAnalyze(ctx, message, history, patient)
		if attemptErr != nil {
			if apperrors.IsRetryable(attemptErr) {
				return attemptErr
			}
			return retry.Stop(attemptErr)
		}
		result = res
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("next_delay", nextDelay).
			Msg("analysis attempt failed, retrying")
	})

	if err == nil {
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, err
	}

	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeMalformed:
		// Salvage whatever symptom fragment is still parseable before
		// falling back to an empty-symptom result.
		var appErr *apperrors.AppError
		raw := ""
		if errors.As(err, &appErr) && appErr.Err != nil {
			if malformed, ok := appErr.Err.(*malformedOutputError); ok {
				raw = malformed.raw
			}
		}
		salvaged := salvageSymptoms(raw)
		logger.Warn().
			Err(err).
			Int("salvaged_symptoms", len(salvaged)).
			Msg("analysis output malformed, degrading")
		degraded := entities.DegradedResult(fallbackReply)
		degraded.Symptoms = salvaged
		return degraded, nil
	default:
		logger.Warn().
			Err(err).
			Str("kind", string(apperrors.TypeOf(err))).
			Msg("analysis provider failed, degrading to empty-symptom result")
		return entities.DegradedResult(fallbackReply), nil
	}
}

func (c *Client) doAnalyze(ctx context.Context, message string, history []entities.ConversationTurn, patient *entities.PatientContext) (*entities.AnalysisResult, error) {
	input := []map[string]string{
		{"role": "system", "content": triageSystemPrompt},
	}
	for _, turn := range history {
		input = append(input, map[string]string{"role": turn.Role, "content": turn.Content})
	}
	input = append(input, map[string]string{"role": "user", "content": buildTriageUserPrompt(message, patient)})

	payload := map[string]interface{}{
		"model":             c.model,
		"input":             input,
		"temperature":       0.2,
		"max_output_tokens": 600,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordMetric(ctx, c.model, 0, time.Since(start), err)
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, classifyStatus(resp.StatusCode)
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewMalformedError("failed to decode provider envelope", &malformedOutputError{cause: err})
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		recordMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing output text"))
		return nil, apperrors.NewMalformedError("provider response missing output text", &malformedOutputError{})
	}

	parsed, err := parseAnalysisPayload(text)
	if err != nil {
		recordMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewMalformedError("failed to parse analysis payload", &malformedOutputError{raw: text, cause: err})
	}

	recordMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)

	symptoms := parsed.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	return &entities.AnalysisResult{
		Symptoms:          symptoms,
		EmergencyKeywords: parsed.Emergency,
		RawReply:          parsed.Reply,
		SeverityHint:      parsed.SeverityHint,
		Status:            entities.AnalysisOK,
	}, nil
}

func parseAnalysisPayload(text string) (*analysisPayload, error) {
	cleaned := text
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, err
	}
	if parsed.Reply == "" {
		return nil, errors.New("payload missing reply")
	}
	return &parsed, nil
}

// malformedOutputError keeps the raw provider text so the salvage path
// can recover a partial symptom list.
type malformedOutputError struct {
	raw   string
	cause error
}

func (e *malformedOutputError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return "malformed provider output"
}

func (e *malformedOutputError) Unwrap() error {
	return e.cause
}

// salvageSymptoms extracts whatever symptom list fragment is still
// parseable from truncated provider output.
func salvageSymptoms(raw string) []string {
	idx := strings.Index(raw, `"symptoms"`)
	if idx < 0 {
		return []string{}
	}
	rest := raw[idx:]
	open := strings.Index(rest, "[")
	if open < 0 {
		return []string{}
	}
	rest = rest[open+1:]
	if end := strings.Index(rest, "]"); end >= 0 {
		rest = rest[:end]
	}

	symptoms := []string{}
	for {
		start := strings.Index(rest, `"`)
		if start < 0 {
			break
		}
		rest = rest[start+1:]
		stop := strings.Index(rest, `"`)
		if stop < 0 {
			// Truncated mid-string; the fragment before the cut is still
			// a usable prefix only when non-empty and not partial JSON
			break
		}
		symptom := strings.TrimSpace(rest[:stop])
		if symptom != "" {
			symptoms = append(symptoms, symptom)
		}
		rest = rest[stop+1:]
	}

	return symptoms
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("analysis request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError("analysis request timed out", err)
	}
	return apperrors.NewUnavailableError("analysis provider unreachable", err)
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.NewQuotaExceededError("analysis provider quota exceeded")
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.NewTimeoutError(fmt.Sprintf("analysis request failed with status %d", status), nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.NewExternalError(fmt.Sprintf("analysis request rejected with status %d", status), nil)
	default:
		return apperrors.NewUnavailableError(fmt.Sprintf("analysis request failed with status %d", status), nil)
	}
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	return &tokenBucket{
		tokens:   float64(burst),
		capacity: float64(burst),
		rate:     float64(rpm) / 60.0,
		last:     time.Now(),
	}
}

// tokenBucket refills lazily from elapsed time on each Wait, so a client
// holds no background goroutine or timer between requests.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		b.tokens += now.Sub(b.last).Seconds() * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type analysisMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	metrics     *analysisMetrics
)

// loadMetrics registers the analysis instruments exactly once; concurrent
// first requests share the registration. A nil return means registration
// failed and recording is skipped.
func loadMetrics() *analysisMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter("github.com/healthbridge/HealthBridge/backend/analysis")

		requestCount, err := meter.Int64Counter(
			"ai.analysis.request.count",
			metric.WithDescription("Number of analysis requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.analysis.request.duration",
			metric.WithDescription("Analysis request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.analysis.request.errors",
			metric.WithDescription("Number of analysis request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.analysis.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the analysis rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		metrics = &analysisMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
	})
	return metrics
}

func recordMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	m := loadMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	m := loadMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
