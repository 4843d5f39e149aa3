package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// This is a convenience wrapper around otel.Tracer().Start() with common patterns.
//
// Usage in services:
//
//	ctx, span := telemetry.StartSpan(ctx, "portalapi/services/portal", "portal.RotateKey",
//	    attribute.String(telemetry.AttrSubscriptionID, id),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
// Use for business events like onboarding outcomes, cache invalidations, etc.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys for portal services
const (
	// Account attributes
	AttrAccountID    = "account.id"
	AttrAccountEmail = "account.email"
	AttrAccountAdmin = "account.admin"
	AttrDisplayName  = "account.display_name"
	AttrOnBehalfOf   = "account.on_behalf_of"

	// Subscription attributes
	AttrSubscriptionID = "subscription.id"
	AttrProductName    = "subscription.product"
	AttrKeyType        = "subscription.key_type"

	// Group assignment attributes
	AttrGroupsRequested = "groups.requested"
	AttrGroupsAdded     = "groups.added"

	// Service attributes
	AttrServiceID = "service.id"

	// Onboarding attributes
	AttrOnboardingStep = "onboarding.step"
)
