// Package service implements the draw core: the ticket ledger, the draw
// engine and the verification lookups, as functions over an injected repository.Store.
// It holds no process-wide state.
package service

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/repository"
)

// timePrecision is the resolution of stored timestamps (DATETIME(3)).
const timePrecision = time.Millisecond

// Service bundles the store and collaborators used by every operation.
type Service struct {
	store     repository.Store
	publisher EventPublisher
	log       logrus.FieldLogger
	now       func() time.Time
	random    io.Reader
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets the event publisher notified after commits.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandom overrides the random source used for winner selection, quick
// picks and draw codes.  It must stay unpredictable outside of tests.
func WithRandom(r io.Reader) Option {
	return func(s *Service) {
		if r != nil {
			s.random = r
		}
	}
}

// New constructs a Service over the given store.
func New(store repository.Store, opts ...Option) *Service {
	if store == nil {
		panic("nil store passed to service.New")
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Service{
		store:     store,
		publisher: NopPublisher{},
		log:       discard,
		now:       time.Now,
		random:    rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
