// Package health probes the components the client depends on and keeps the
// latest results for the /health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateUnhealthy HealthState = "unhealthy"
	HealthStateWarning   HealthState = "warning"
	HealthStateUnknown   HealthState = "unknown"
)

// ComponentHealth is the outcome of one check.
type ComponentHealth struct {
	Name        string                 `json:"name"`
	Status      HealthState            `json:"status"`
	Message     string                 `json:"message"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// HealthStatus aggregates every component.
type HealthStatus struct {
	Overall     HealthState                `json:"overall"`
	Version     string                     `json:"version"`
	Uptime      string                     `json:"uptime"`
	Components  map[string]ComponentHealth `json:"components"`
	LastChecked time.Time                  `json:"last_checked"`
	CheckCount  int64                      `json:"check_count"`
}

// HealthCheck is a single probe.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// HealthChecker runs the registered checks on an interval.
type HealthChecker struct {
	interval time.Duration
	timeout  time.Duration
	version  string
	started  time.Time
	logger   *logrus.Logger

	mutex  sync.RWMutex
	checks map[string]HealthCheck
	status *HealthStatus
}

// NewHealthChecker creates a checker. Zero durations fall back to 30s/5s.
func NewHealthChecker(interval, timeout time.Duration, version string, logger *logrus.Logger) *HealthChecker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &HealthChecker{
		interval: interval,
		timeout:  timeout,
		version:  version,
		started:  time.Now(),
		logger:   logger,
		checks:   make(map[string]HealthCheck),
		status: &HealthStatus{
			Overall:    HealthStateUnknown,
			Version:    version,
			Components: make(map[string]ComponentHealth),
		},
	}
}

// RegisterCheck adds or replaces a check.
func (h *HealthChecker) RegisterCheck(check HealthCheck) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.checks[check.Name()] = check
}

// Run checks immediately and then on every tick until ctx is done.
func (h *HealthChecker) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.WithField("interval", h.interval.String()).Info("Health checker started")
	h.RunChecks(ctx)

	for {
		select {
		case <-ticker.C:
			h.RunChecks(ctx)
		case <-ctx.Done():
			h.logger.Info("Health checker stopped")
			return nil
		}
	}
}

// RunChecks executes every check in parallel and stores the result.
func (h *HealthChecker) RunChecks(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mutex.RLock()
	checks := make([]HealthCheck, 0, len(h.checks))
	for _, check := range h.checks {
		checks = append(checks, check)
	}
	h.mutex.RUnlock()

	results := make(chan ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			start := time.Now()
			result := c.Check(ctx)
			result.Name = c.Name()
			result.Duration = time.Since(start)
			result.LastChecked = time.Now()
			results <- result
		}(check)
	}
	wg.Wait()
	close(results)

	components := make(map[string]ComponentHealth, len(checks))
	overall := HealthStateHealthy
	var troubled []string
	for result := range results {
		components[result.Name] = result
		switch result.Status {
		case HealthStateUnhealthy:
			overall = HealthStateUnhealthy
			troubled = append(troubled, result.Name)
		case HealthStateWarning:
			if overall == HealthStateHealthy {
				overall = HealthStateWarning
			}
			troubled = append(troubled, result.Name)
		}
	}

	h.mutex.Lock()
	status := &HealthStatus{
		Overall:     overall,
		Version:     h.version,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		Components:  components,
		LastChecked: time.Now(),
		CheckCount:  h.status.CheckCount + 1,
	}
	h.status = status
	h.mutex.Unlock()

	if overall != HealthStateHealthy {
		h.logger.WithFields(logrus.Fields{
			"overall_status":       overall,
			"unhealthy_components": troubled,
		}).Warn("Health check completed with issues")
	} else {
		h.logger.Debug("Health check completed successfully")
	}

	return status
}

// Status returns a copy of the latest result.
func (h *HealthChecker) Status() HealthStatus {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := *h.status
	out.Components = make(map[string]ComponentHealth, len(h.status.Components))
	for k, v := range h.status.Components {
		out.Components[k] = v
	}
	return out
}
