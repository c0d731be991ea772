// Package prediction is the HTTP client for the remote risk prediction
// service: assessment predictions, the supportive chat relay and the
// service health probe.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/smart-disease-client/internal/domain"
)

const (
	defaultBaseURL     = "http://localhost:5000"
	defaultPredictPath = "/api/predict"
	defaultChatPath    = "/api/chat"
	defaultHealthPath  = "/health"

	maxResponseBytes = 1 << 20
)

// Client talks to the prediction service.
type Client struct {
	baseURL     string
	predictPath string
	chatPath    string
	healthPath  string
	httpClient  *http.Client
	rateLimit   *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *logrus.Logger
}

// NewClient creates a new prediction service client
func NewClient(config domain.PredictionConfig, logger *logrus.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.PredictPath == "" {
		config.PredictPath = defaultPredictPath
	}
	if config.ChatPath == "" {
		config.ChatPath = defaultChatPath
	}
	if config.HealthPath == "" {
		config.HealthPath = defaultHealthPath
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	c := &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		predictPath: config.PredictPath,
		chatPath:    config.ChatPath,
		healthPath:  config.HealthPath,
		// A zero timeout leaves requests unbounded; callers cancel via context.
		httpClient: &http.Client{Timeout: config.Timeout},
		rateLimit:  rate.NewLimiter(limit, 1),
		logger:     logger,
	}

	if config.CircuitBreaker.Enabled {
		c.breaker = newBreaker(config.CircuitBreaker, logger)
	}

	return c
}

func newBreaker(cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prediction-service",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var pe *domain.PredictionError
			if errors.As(err, &pe) {
				switch pe.Kind {
				case domain.FailureCanceled:
					return true
				case domain.FailureStatus:
					return pe.StatusCode < http.StatusInternalServerError
				}
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// Predict sends one assessment request and decodes the result.
func (c *Client) Predict(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", req.Disease(), err)
	}

	data, err := c.call(ctx, http.MethodPost, c.predictPath, body)
	if err != nil {
		return nil, err
	}

	result, err := DecodeResult(data)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"variant":    req.Disease().String(),
		"risk_label": string(result.RiskLabel),
	}).Debug("Prediction decoded")

	return result, nil
}

// Chat relays one supportive-chat message.
func (c *Client) Chat(ctx context.Context, message string) (*domain.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.ErrEmptyMessage
	}

	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat message: %w", err)
	}

	data, err := c.call(ctx, http.MethodPost, c.chatPath, body)
	if err != nil {
		return nil, err
	}

	return DecodeChatReply(data)
}

// Health probes the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.healthPath, nil)
	return err
}

// BreakerState reports the circuit state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

func (c *Client) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, &domain.PredictionError{Kind: domain.FailureCanceled, Message: "rate limit wait failed", Err: err}
	}

	if c.breaker == nil {
		return c.do(ctx, method, path, body)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &domain.PredictionError{Kind: domain.FailureCircuitOpen, Message: "prediction service unavailable", Err: err}
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &domain.PredictionError{Kind: domain.FailureTransport, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := domain.FailureTransport
		if ctx.Err() != nil {
			kind = domain.FailureCanceled
		}
		return nil, &domain.PredictionError{Kind: kind, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.PredictionError{Kind: domain.FailureTransport, Message: "failed to read response", Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Prediction service call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.PredictionError{
			Kind:       domain.FailureStatus,
			StatusCode: resp.StatusCode,
			Message:    serviceMessage(data),
		}
	}

	return data, nil
}

// serviceMessage extracts the {"error": "..."} text the service sends on failures.
func serviceMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return strings.TrimSpace(string(data))
}
