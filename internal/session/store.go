package session

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
)

// ErrClosed is returned by a controller that has been evicted or shut down.
var ErrClosed = errors.New("session closed")

const (
	defaultMaxSessions = 10000
	defaultIdleTTL     = 30 * time.Minute
)

// Store gives each browser session its own controller and expires idle ones.
type Store struct {
	mu        sync.Mutex
	sessions  *expirable.LRU[string, *Controller]
	variant   domain.DiseaseVariant
	predictor domain.Predictor
	recorder  domain.EventRecorder
	logger    *logrus.Logger
}

// NewStore creates a session store. recorder may be nil.
func NewStore(cfg domain.SessionConfig, predictor domain.Predictor, recorder domain.EventRecorder, logger *logrus.Logger) *Store {
	size := cfg.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	variant, err := domain.ParseDiseaseVariant(cfg.DefaultVariant)
	if err != nil {
		variant = domain.Diabetes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Store{
		variant:   variant,
		predictor: predictor,
		recorder:  recorder,
		logger:    logger,
	}
	s.sessions = expirable.NewLRU[string, *Controller](size, func(id string, c *Controller) {
		c.Close()
		logger.WithField("session_id", id).Debug("Session evicted")
	}, ttl)

	return s
}

// GetOrCreate returns the controller for id, creating it on first use.
// Every access refreshes the idle deadline.
func (s *Store) GetOrCreate(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.sessions.Get(id)
	if !ok {
		// An expired entry lingers until the cleaner runs; Add would
		// overwrite it without closing the old controller.
		s.sessions.Remove(id)
		c = NewController(id, s.variant, s.predictor, s.recorder, s.logger)
		s.logger.WithField("session_id", id).Debug("Session created")
	}
	s.sessions.Add(id, c)
	return c
}

// Get returns an existing controller without creating one.
func (s *Store) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Get(id)
}

// Remove closes and forgets the session.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.sessions.Len()
}

// Close closes every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Purge()
}
