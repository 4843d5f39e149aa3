package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Onboarding event names.
const (
	EventOnboardingSucceeded = "onboarding.succeeded"
	EventOnboardingFailed    = "onboarding.failed"
)

// OnboardingEvent describes the outcome of one onboarding workflow run.
type OnboardingEvent struct {
	AccountID   string
	DisplayName string
	Step        string // failed step, empty on success
	Err         error
}

// EventSink receives fire-and-forget business events.
// Implementations must not block the caller for long and must not fail.
type EventSink interface {
	Onboarding(ctx context.Context, ev OnboardingEvent)
}

// NewEventSink returns a sink that annotates the active span, logs the event
// and increments the onboarding outcome counter.
func NewEventSink(logger *slog.Logger, metrics *OnboardingMetrics) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &spanEventSink{logger: logger, metrics: metrics}
}

type spanEventSink struct {
	logger  *slog.Logger
	metrics *OnboardingMetrics
}

func (s *spanEventSink) Onboarding(ctx context.Context, ev OnboardingEvent) {
	name := EventOnboardingSucceeded
	outcome := "success"
	if ev.Err != nil {
		name = EventOnboardingFailed
		outcome = "failure"
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrAccountID, ev.AccountID),
		attribute.String(AttrDisplayName, ev.DisplayName),
	}
	if ev.Step != "" {
		attrs = append(attrs, attribute.String(AttrOnboardingStep, ev.Step))
	}
	AddEvent(trace.SpanFromContext(ctx), name, attrs...)

	if ev.Err != nil {
		s.logger.ErrorContext(ctx, name,
			"account_id", ev.AccountID,
			"display_name", ev.DisplayName,
			"step", ev.Step,
			"error", ev.Err,
		)
	} else {
		s.logger.InfoContext(ctx, name,
			"account_id", ev.AccountID,
			"display_name", ev.DisplayName,
		)
	}

	if s.metrics != nil {
		s.metrics.Outcomes.WithLabelValues(outcome, ev.Step).Inc()
	}
}
