package domain

import (
	"context"
	"time"
)

// Predictor sends one typed assessment request across the prediction boundary.
type Predictor interface {
	Predict(ctx context.Context, req AssessmentRequest) (*AssessmentResult, error)
}

// ChatService relays a supportive-chat message.
type ChatService interface {
	Chat(ctx context.Context, message string) (*ChatReply, error)
}

// EventRecorder persists submission metadata. Implementations never see form
// values or results.
type EventRecorder interface {
	Record(ctx context.Context, event *AssessmentEvent) error
}

// EventOutcome is how a submission resolved.
type EventOutcome string

const (
	OutcomeSucceeded EventOutcome = "succeeded"
	OutcomeFailed    EventOutcome = "failed"
	OutcomeDiscarded EventOutcome = "discarded"
)

// AssessmentEvent is one audit record.
type AssessmentEvent struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Variant       DiseaseVariant `json:"variant"`
	Generation    uint64         `json:"generation"`
	Outcome       EventOutcome   `json:"outcome"`
	FailureKind   FailureKind    `json:"failure_kind,omitempty"`
	DurationMs    int64          `json:"duration_ms"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetPredictionConfig() *PredictionConfig
	GetDatabaseConfig() *DatabaseConfig
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
