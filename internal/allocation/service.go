// Package allocation holds, sells and reports on fish segments. The store is
// the only shared state; a hold is advisory and the commit transaction is the
// only authority on who gets a segment.
package allocation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultHoldDuration = 10 * time.Minute

	tracerName = "github.com/safar/fish-segments/internal/allocation"
)

type Options struct {
	HoldDuration   time.Duration
	Clock          func() time.Time
	Logger         zerolog.Logger
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

func DefaultOptions() Options {
	return Options{
		HoldDuration: DefaultHoldDuration,
		Clock:        time.Now,
		Logger:       zerolog.Nop(),
	}
}

type Service struct {
	store        Store
	holdDuration time.Duration
	now          func() time.Time
	log          zerolog.Logger
	metrics      *Metrics
	tracer       trace.Tracer
}

func NewService(store Store, opts Options) *Service {
	if opts.HoldDuration <= 0 {
		opts.HoldDuration = DefaultHoldDuration
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Service{
		store:        store,
		holdDuration: opts.HoldDuration,
		now:          opts.Clock,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		tracer:       tp.Tracer(tracerName),
	}
}

func (s *Service) HoldDuration() time.Duration {
	return s.holdDuration
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
