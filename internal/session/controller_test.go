package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/presenter"
)

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.AssessmentResult)
	return result, args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, event *domain.AssessmentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// blockingPredictor parks each call until released.
type blockingPredictor struct {
	started chan struct{}
	release chan struct{}
	result  *domain.AssessmentResult
	mu      sync.Mutex
	calls   int
}

func newBlockingPredictor(result *domain.AssessmentResult) *blockingPredictor {
	return &blockingPredictor{started: make(chan struct{}, 4), release: make(chan struct{}), result: result}
}

func (b *blockingPredictor) Predict(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResult, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
	return b.result, nil
}

// ctxPredictor blocks until release or until its call context is done.
type ctxPredictor struct {
	started chan struct{}
	release chan struct{}
}

func (p *ctxPredictor) Predict(ctx context.Context, req domain.AssessmentRequest) (*domain.AssessmentResult, error) {
	p.started <- struct{}{}
	select {
	case <-p.release:
		return diabetesResult(), nil
	case <-ctx.Done():
		return nil, &domain.PredictionError{Kind: domain.FailureCanceled, Message: "canceled", Err: ctx.Err()}
	}
}

func (b *blockingPredictor) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newController(t *testing.T, predictor domain.Predictor, recorder domain.EventRecorder) *Controller {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c := NewController("sess-1", domain.Diabetes, predictor, recorder, logger)
	t.Cleanup(c.Close)
	return c
}

func diabetesResult() *domain.AssessmentResult {
	return &domain.AssessmentResult{
		DiseaseName: "Type 2 Diabetes",
		RiskScore:   domain.Some(0.42),
		RiskLabel:   domain.RiskModerate,
		Explanation: []domain.AttributionItem{
			{Feature: "bmi", Value: domain.Some(27.5), ShapValue: domain.Some(0.18)},
		},
	}
}

func TestController_InitialState(t *testing.T) {
	c := newController(t, &MockPredictor{}, nil)
	snap := c.Snapshot()

	assert.Equal(t, domain.Diabetes, snap.Variant)
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.Equal(t, "0", snap.Form["highbp"])
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.ErrorMessage)
}

func TestController_DiabetesEndToEnd(t *testing.T) {
	predictor := &MockPredictor{}
	var payload []byte
	predictor.On("Predict", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		payload, _ = json.Marshal(args.Get(1))
	}).Return(diabetesResult(), nil).Once()

	c := newController(t, predictor, nil)
	for name, value := range map[string]string{
		"age": "45", "bmi": "27.5", "highbp": "1", "highchol": "0", "genhlth": "2", "diffwalk": "0",
	} {
		require.NoError(t, c.SetField(name, value))
	}

	snap, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, `{"disease":"diabetes","age":45,"bmi":27.5,"highbp":1,"highchol":0,"genhlth":2,"diffwalk":0}`, string(payload))
	assert.Equal(t, domain.StatusSucceeded, snap.Status)
	require.NotNil(t, snap.Result)

	model := presenter.Present(snap.Result)
	assert.Equal(t, "42.0%", model.RiskPercent)
	assert.Equal(t, presenter.TierModerate, model.Tier)
	require.Len(t, model.Attributions, 1)
	assert.Equal(t, "BMI", model.Attributions[0].Label)
	assert.InDelta(t, 18.0, model.Attributions[0].BarWidth, 1e-9)

	predictor.AssertExpectations(t)
}

func TestController_SubmitFailure(t *testing.T) {
	predictor := &MockPredictor{}
	predictor.On("Predict", mock.Anything, mock.Anything).
		Return(nil, &domain.PredictionError{Kind: domain.FailureStatus, StatusCode: 400, Message: "bad"}).Once()

	recorder := &MockRecorder{}
	recorder.On("Record", mock.Anything, mock.MatchedBy(func(e *domain.AssessmentEvent) bool {
		return e.Outcome == domain.OutcomeFailed && e.FailureKind == domain.FailureStatus && e.Variant == domain.Diabetes
	})).Return(nil).Once()

	c := newController(t, predictor, recorder)
	snap, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.Equal(t, domain.FailureMessage, snap.ErrorMessage)
	assert.Nil(t, snap.Result)
	predictor.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestController_ResubmitAfterFailureClearsError(t *testing.T) {
	predictor := &MockPredictor{}
	predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	predictor.On("Predict", mock.Anything, mock.Anything).Return(diabetesResult(), nil).Once()

	c := newController(t, predictor, nil)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	snap, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, snap.Status)
	assert.Empty(t, snap.ErrorMessage)
}

func TestController_NilResultIsFailure(t *testing.T) {
	predictor := &MockPredictor{}
	predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, nil).Once()

	c := newController(t, predictor, nil)
	snap, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, snap.Status)
}

func TestController_SubmitWhileSubmittingIsRejected(t *testing.T) {
	predictor := newBlockingPredictor(diabetesResult())
	c := newController(t, predictor, nil)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-predictor.started

	before := c.Snapshot()
	snap, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)
	assert.Equal(t, before, snap)
	assert.Equal(t, before, c.Snapshot())

	close(predictor.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, predictor.callCount())
	assert.Equal(t, domain.StatusSucceeded, c.Snapshot().Status)
}

func TestController_ResetSuppressesStaleResponse(t *testing.T) {
	predictor := newBlockingPredictor(diabetesResult())
	c := newController(t, predictor, nil)
	require.NoError(t, c.SetField("age", "45"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-predictor.started

	c.Reset()
	close(predictor.release)

	assert.ErrorIs(t, <-done, domain.ErrSuperseded)
	snap := c.Snapshot()
	assert.Equal(t, domain.StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Equal(t, "", snap.Form["age"])
}

func TestController_SelectVariantDiscardsEverything(t *testing.T) {
	for _, status := range []string{"succeeded", "failed", "submitting"} {
		t.Run(status, func(t *testing.T) {
			predictor := &MockPredictor{}
			c := newController(t, predictor, nil)

			switch status {
			case "succeeded":
				predictor.On("Predict", mock.Anything, mock.Anything).Return(diabetesResult(), nil).Once()
				_, err := c.Submit(context.Background())
				require.NoError(t, err)
			case "failed":
				predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()
				_, err := c.Submit(context.Background())
				require.NoError(t, err)
			case "submitting":
				blocking := newBlockingPredictor(diabetesResult())
				c.predictor = blocking
				go func() { _, _ = c.Submit(context.Background()) }()
				<-blocking.started
				defer close(blocking.release)
			}

			require.NoError(t, c.SelectVariant(domain.Hypertension))
			snap := c.Snapshot()
			assert.Equal(t, domain.Hypertension, snap.Variant)
			assert.Equal(t, domain.StatusIdle, snap.Status)
			assert.Nil(t, snap.Result)
			assert.Empty(t, snap.ErrorMessage)
			assert.Contains(t, snap.Form, "trestbps")
			assert.NotContains(t, snap.Form, "highbp")
		})
	}
}

func TestController_SelectVariantCancelsInFlight(t *testing.T) {
	canceled := make(chan struct{})
	predictor := &MockPredictor{}
	started := make(chan struct{})
	predictor.On("Predict", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
		close(canceled)
	}).Return(nil, context.Canceled).Once()

	c := newController(t, predictor, nil)
	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-started

	require.NoError(t, c.SelectVariant(domain.Stroke))

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("in-flight request was not canceled")
	}
	assert.ErrorIs(t, <-done, domain.ErrSuperseded)
}

func TestController_FieldsDoNotLeakAcrossVariants(t *testing.T) {
	c := newController(t, &MockPredictor{}, nil)
	require.NoError(t, c.SetField("age", "70"))
	require.NoError(t, c.SelectVariant(domain.Hypertension))

	assert.Equal(t, "", c.Snapshot().Form["age"])
}

func TestController_SetFieldValidation(t *testing.T) {
	c := newController(t, &MockPredictor{}, nil)

	err := c.SetField("trestbps", "120")
	assert.ErrorIs(t, err, domain.ErrUnknownField)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "trestbps", ve.Field)
	assert.Equal(t, "120", ve.Value)

	require.NoError(t, c.SetField("bmi", "not-a-number"))
	assert.Equal(t, "not-a-number", c.Snapshot().Form["bmi"])
	assert.Equal(t, domain.StatusIdle, c.Snapshot().Status)

	err = c.SetFields(map[string]string{"age": "50", "chol": "200"})
	assert.ErrorIs(t, err, domain.ErrUnknownField)
	assert.Equal(t, "", c.Snapshot().Form["age"], "partial batch must not apply")
}

func TestController_SelectVariantRejectsUnknown(t *testing.T) {
	c := newController(t, &MockPredictor{}, nil)
	assert.ErrorIs(t, c.SelectVariant("asthma"), domain.ErrUnknownVariant)
	assert.Equal(t, domain.Diabetes, c.Snapshot().Variant)
}

func TestController_SnapshotIsACopy(t *testing.T) {
	predictor := &MockPredictor{}
	predictor.On("Predict", mock.Anything, mock.Anything).Return(diabetesResult(), nil).Once()
	c := newController(t, predictor, nil)
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	snap := c.Snapshot()
	snap.Form["age"] = "99"
	snap.Result.Explanation[0].Feature = "mutated"

	fresh := c.Snapshot()
	assert.Equal(t, "", fresh.Form["age"])
	assert.Equal(t, "bmi", fresh.Result.Explanation[0].Feature)
}

func TestController_Subscribe(t *testing.T) {
	predictor := &MockPredictor{}
	predictor.On("Predict", mock.Anything, mock.Anything).Return(diabetesResult(), nil).Once()
	c := newController(t, predictor, nil)

	updates, cancel := c.Subscribe()
	defer cancel()

	first := <-updates
	assert.Equal(t, domain.StatusIdle, first.Status)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSubmitting, (<-updates).Status)
	assert.Equal(t, domain.StatusSucceeded, (<-updates).Status)

	c.Close()
	_, open := <-updates
	assert.False(t, open)
}

func TestController_SubmitAfterClose(t *testing.T) {
	c := newController(t, &MockPredictor{}, nil)
	c.Close()

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestController_SubmitSurvivesCallerCancellation(t *testing.T) {
	predictor := &ctxPredictor{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := newController(t, predictor, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := c.Submit(ctx)
		done <- snap
	}()

	<-predictor.started
	cancel()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.StatusSubmitting, c.Snapshot().Status)

	close(predictor.release)
	snap := <-done
	assert.Equal(t, domain.StatusSucceeded, snap.Status)
	require.NotNil(t, snap.Result)
}

func TestController_ResetCancelsInFlightCall(t *testing.T) {
	predictor := &ctxPredictor{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := newController(t, predictor, nil)

	errs := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		errs <- err
	}()

	<-predictor.started
	c.Reset()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, domain.ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("reset did not cancel the in-flight call")
	}
	assert.Equal(t, domain.StatusIdle, c.Snapshot().Status)
}
