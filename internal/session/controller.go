// Package session owns the assessment workflow of a single user: the selected
// variant, the form being edited, and the outcome of the one submission that
// may be in flight.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/schema"
)

const (
	subscriberBuffer = 8
	recordTimeout    = 5 * time.Second
)

// Snapshot is an immutable copy of a controller's state.
type Snapshot struct {
	SessionID    string                   `json:"session_id"`
	Variant      domain.DiseaseVariant    `json:"variant"`
	Form         domain.FormState         `json:"form"`
	Status       domain.SessionStatus     `json:"status"`
	Result       *domain.AssessmentResult `json:"result,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Generation   uint64                   `json:"generation"`
}

// Controller is the state machine of one assessment session. All methods are
// safe for concurrent use; the prediction call runs outside the lock.
type Controller struct {
	mu sync.Mutex

	id         string
	variant    domain.DiseaseVariant
	form       domain.FormState
	status     domain.SessionStatus
	result     *domain.AssessmentResult
	errMessage string

	generation     uint64
	cancelInFlight context.CancelFunc

	subscribers map[int]chan Snapshot
	nextSub     int
	closed      bool

	predictor domain.Predictor
	recorder  domain.EventRecorder
	logger    *logrus.Logger
}

// NewController creates an idle session on the given variant. recorder may be nil.
func NewController(id string, variant domain.DiseaseVariant, predictor domain.Predictor, recorder domain.EventRecorder, logger *logrus.Logger) *Controller {
	if !variant.IsValid() {
		variant = domain.Diabetes
	}
	if id == "" {
		id = uuid.New().String()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Controller{
		id:          id,
		variant:     variant,
		form:        schema.DefaultsFor(variant),
		status:      domain.StatusIdle,
		subscribers: make(map[int]chan Snapshot),
		predictor:   predictor,
		recorder:    recorder,
		logger:      logger,
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// SelectVariant switches to v and starts over from its defaults, discarding
// any result, error or in-flight submission.
func (c *Controller) SelectVariant(v domain.DiseaseVariant) error {
	if !v.IsValid() {
		return domain.ErrUnknownVariant
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.variant = v
	c.restartLocked()

	c.logger.WithFields(logrus.Fields{
		"session_id": c.id,
		"variant":    v.String(),
	}).Debug("Variant selected")

	return nil
}

// SetField stores raw verbatim under name. Coercion happens at submission.
func (c *Controller) SetField(name, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.form[name]; !ok {
		return domain.NewValidationError(name, raw, domain.ErrUnknownField)
	}
	c.form[name] = raw
	c.publishLocked()
	return nil
}

// SetFields applies several edits atomically. Nothing is applied if any name
// is unknown.
func (c *Controller) SetFields(values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, raw := range values {
		if _, ok := c.form[name]; !ok {
			return domain.NewValidationError(name, raw, domain.ErrUnknownField)
		}
	}
	for name, raw := range values {
		c.form[name] = raw
	}
	c.publishLocked()
	return nil
}

// Reset restores the current variant's defaults and returns to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.restartLocked()
}

// Submit sends the current form to the predictor and blocks until the call
// resolves. It returns ErrSubmissionInFlight without side effects while a
// submission is pending, and ErrSuperseded when a reset or variant change
// overtook the call; in that case the response is dropped. The call outlives
// cancellation of ctx; only Reset, SelectVariant and Close abandon it.
func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if c.status == domain.StatusSubmitting {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrSubmissionInFlight
	}

	variant := c.variant
	req := schema.BuildRequest(variant, c.form)
	c.generation++
	gen := c.generation
	callCtx, cancel := context.WithCancel(ctx)
	c.cancelInFlight = cancel
	c.status = domain.StatusSubmitting
	c.result = nil
	c.errMessage = ""
	c.publishLocked()
	c.mu.Unlock()

	start := time.Now()
	result, err := c.predictor.Predict(callCtx, req)
	elapsed := time.Since(start)
	cancel()

	if err == nil && result == nil {
		err = &domain.PredictionError{Kind: domain.FailureDecode, Message: "empty prediction result"}
	}

	c.mu.Lock()
	if c.generation != gen || c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"session_id": c.id,
			"variant":    variant.String(),
			"generation": gen,
		}).Debug("Discarded superseded prediction response")
		c.record(ctx, gen, variant, domain.OutcomeDiscarded, domain.KindOf(err), elapsed)
		return snap, domain.ErrSuperseded
	}

	c.cancelInFlight = nil
	outcome := domain.OutcomeSucceeded
	if err != nil {
		outcome = domain.OutcomeFailed
		c.status = domain.StatusFailed
		c.result = nil
		c.errMessage = domain.FailureMessage
	} else {
		c.status = domain.StatusSucceeded
		c.result = result
		c.errMessage = ""
	}
	c.publishLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	fields := logrus.Fields{
		"session_id":  c.id,
		"variant":     variant.String(),
		"generation":  gen,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["failure_kind"] = string(domain.KindOf(err))
		c.logger.WithFields(fields).WithError(err).Warn("Assessment submission failed")
	} else {
		c.logger.WithFields(fields).Info("Assessment submission succeeded")
	}
	c.record(ctx, gen, variant, outcome, domain.KindOf(err), elapsed)

	return snap, nil
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// Subscribe streams a snapshot after every transition, starting with the
// current state. Slow subscribers only ever miss intermediate states.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close abandons any in-flight call and ends all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
}

func (c *Controller) restartLocked() {
	c.generation++
	if c.cancelInFlight != nil {
		c.cancelInFlight()
		c.cancelInFlight = nil
	}
	c.form = schema.DefaultsFor(c.variant)
	c.status = domain.StatusIdle
	c.result = nil
	c.errMessage = ""
	c.publishLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:    c.id,
		Variant:      c.variant,
		Form:         c.form.Clone(),
		Status:       c.status,
		Result:       cloneResult(c.result),
		ErrorMessage: c.errMessage,
		Generation:   c.generation,
	}
}

func (c *Controller) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued state to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) record(ctx context.Context, gen uint64, variant domain.DiseaseVariant, outcome domain.EventOutcome, kind domain.FailureKind, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}

	event := &domain.AssessmentEvent{
		ID:            uuid.New().String(),
		SessionID:     c.id,
		Variant:       variant,
		Generation:    gen,
		Outcome:       outcome,
		FailureKind:   kind,
		DurationMs:    elapsed.Milliseconds(),
		CorrelationID: domain.CorrelationIDFrom(ctx),
		CreatedAt:     time.Now().UTC(),
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := c.recorder.Record(recordCtx, event); err != nil {
		c.logger.WithFields(logrus.Fields{
			"session_id": c.id,
			"event_id":   event.ID,
		}).WithError(err).Warn("Failed to record assessment event")
	}
}

func cloneResult(r *domain.AssessmentResult) *domain.AssessmentResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Advice != nil {
		advice := *r.Advice
		out.Advice = &advice
	}
	if r.Explanation != nil {
		out.Explanation = make([]domain.AttributionItem, len(r.Explanation))
		copy(out.Explanation, r.Explanation)
	}
	return &out
}
