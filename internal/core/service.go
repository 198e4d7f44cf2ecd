package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/leadbook/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/JonMunkholm/leadbook/internal/core"

// Service is the entry point for imports and lead mutations. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	store   Store
	limiter *ImportLimiter
	metrics *metrics.Metrics
	tracer  trace.Tracer

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithImportLimiter replaces the default limiter.
func WithImportLimiter(l *ImportLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides lead ID generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		limiter: NewImportLimiter(DefaultMaxConcurrentImports, DefaultMaxWaitTime),
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ImportLimiterStatus reports import slot usage.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish. Used during shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// timestamp is truncated to the precision of a postgres timestamptz.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func requireUser(user CurrentUser) error {
	if user.ID == "" {
		return ErrUnauthorized
	}
	return nil
}
