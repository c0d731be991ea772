package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	err   error
	state string
}

func (f *fakeService) Health(context.Context) error { return f.err }
func (f *fakeService) BreakerState() string         { return f.state }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCounter int

func (f fakeCounter) Len() int { return int(f) }

type failingCheck struct{}

func (failingCheck) Name() string { return "broken" }
func (failingCheck) Check(context.Context) ComponentHealth {
	return ComponentHealth{Status: HealthStateUnhealthy, Message: "down"}
}

func newChecker(t *testing.T) *HealthChecker {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewHealthChecker(time.Hour, time.Second, "test", logger)
}

func TestHealthChecker_InitialStatusUnknown(t *testing.T) {
	h := newChecker(t)
	assert.Equal(t, HealthStateUnknown, h.Status().Overall)
}

func TestHealthChecker_AllHealthy(t *testing.T) {
	h := newChecker(t)
	h.RegisterCheck(&PredictionServiceCheck{Service: &fakeService{state: "closed"}})
	h.RegisterCheck(&AuditStoreCheck{Store: fakePinger{}})
	h.RegisterCheck(&SessionStoreCheck{Sessions: fakeCounter(3), Capacity: 100})

	status := h.RunChecks(context.Background())

	assert.Equal(t, HealthStateHealthy, status.Overall)
	require.Len(t, status.Components, 3)
	assert.Equal(t, "closed", status.Components["prediction_service"].Metadata["circuit_breaker"])
	assert.Equal(t, int64(1), h.Status().CheckCount)
}

func TestHealthChecker_Degraded(t *testing.T) {
	h := newChecker(t)
	h.RegisterCheck(&PredictionServiceCheck{Service: &fakeService{err: errors.New("connection refused"), state: "open"}})
	h.RegisterCheck(&SessionStoreCheck{Sessions: fakeCounter(95), Capacity: 100})

	status := h.RunChecks(context.Background())

	assert.Equal(t, HealthStateWarning, status.Overall)
	assert.Equal(t, "connection refused", status.Components["prediction_service"].Error)
	assert.Equal(t, HealthStateWarning, status.Components["sessions"].Status)
}

func TestHealthChecker_Unhealthy(t *testing.T) {
	h := newChecker(t)
	h.RegisterCheck(&AuditStoreCheck{Store: fakePinger{err: errors.New("locked")}})
	h.RegisterCheck(failingCheck{})

	assert.Equal(t, HealthStateUnhealthy, h.RunChecks(context.Background()).Overall)
}

func TestHealthChecker_RunStopsWithContext(t *testing.T) {
	h := newChecker(t)
	h.RegisterCheck(&AuditStoreCheck{Store: fakePinger{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool { return h.Status().CheckCount >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
