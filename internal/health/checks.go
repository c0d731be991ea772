package health

import (
	"context"
)

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PredictionService is the subset of the prediction client the check needs.
type PredictionService interface {
	Health(ctx context.Context) error
	BreakerState() string
}

// PredictionServiceCheck probes the remote prediction service. Failures are
// warnings: pages and forms keep working while the service is away.
type PredictionServiceCheck struct {
	Service PredictionService
}

func (c *PredictionServiceCheck) Name() string { return "prediction_service" }

func (c *PredictionServiceCheck) Check(ctx context.Context) ComponentHealth {
	meta := map[string]interface{}{"circuit_breaker": c.Service.BreakerState()}
	if err := c.Service.Health(ctx); err != nil {
		return ComponentHealth{
			Status:   HealthStateWarning,
			Message:  "Prediction service unreachable",
			Error:    err.Error(),
			Metadata: meta,
		}
	}
	return ComponentHealth{Status: HealthStateHealthy, Message: "Prediction service reachable", Metadata: meta}
}

// AuditStoreCheck pings the audit trail database.
type AuditStoreCheck struct {
	Store Pinger
}

func (c *AuditStoreCheck) Name() string { return "audit_store" }

func (c *AuditStoreCheck) Check(ctx context.Context) ComponentHealth {
	if err := c.Store.Ping(ctx); err != nil {
		return ComponentHealth{Status: HealthStateWarning, Message: "Audit store unavailable", Error: err.Error()}
	}
	return ComponentHealth{Status: HealthStateHealthy, Message: "Audit store reachable"}
}

// SessionCounter reports live sessions.
type SessionCounter interface {
	Len() int
}

// SessionStoreCheck reports session occupancy and warns near capacity.
type SessionStoreCheck struct {
	Sessions SessionCounter
	Capacity int
}

func (c *SessionStoreCheck) Name() string { return "sessions" }

func (c *SessionStoreCheck) Check(ctx context.Context) ComponentHealth {
	active := c.Sessions.Len()
	meta := map[string]interface{}{"active": active, "capacity": c.Capacity}
	if c.Capacity > 0 && active*10 >= c.Capacity*9 {
		return ComponentHealth{Status: HealthStateWarning, Message: "Session store near capacity", Metadata: meta}
	}
	return ComponentHealth{Status: HealthStateHealthy, Message: "Session store ok", Metadata: meta}
}
