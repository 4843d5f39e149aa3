package portal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

func (s *portalService) RotateKey(ctx context.Context, subscriptionID string, owner *string, key controlplane.KeyType) (*controlplane.Subscription, error) {
	const op = "portal.RotateKey"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrSubscriptionID, subscriptionID),
		attribute.String(telemetry.AttrKeyType, string(key)),
	)
	defer span.End()

	// A previously cached ownership check is never trusted here.
	if _, err := s.fetchOwned(ctx, subscriptionID, owner); err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	if err := s.cp.RegenerateKey(ctx, subscriptionID, key); err != nil {
		err = classify(op, fmt.Errorf("regenerate %s key of %s: %w", key, subscriptionID, err))
		telemetry.RecordError(span, err)
		return nil, err
	}

	removed := s.subscriptions.Invalidate(func(k subscriptionKey) bool { return k.ID == subscriptionID })
	telemetry.AddEvent(span, "cache.invalidated", attribute.Int("cache.entries", removed))

	sub, err := s.GetOwnedSubscription(ctx, subscriptionID, owner)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	s.logger.InfoContext(ctx, "subscription key regenerated", "subscription_id", subscriptionID, "key", key)
	return sub, nil
}

func (s *portalService) RegenerateKey(ctx context.Context, id auth.Identity, onBehalfOf, subscriptionID string, key controlplane.KeyType) (*controlplane.Subscription, error) {
	const op = "portal.RegenerateKey"

	caller, acting, err := s.resolveCaller(ctx, id, onBehalfOf)
	if err != nil {
		return nil, apperr.Keep(op, err)
	}
	sub, err := s.RotateKey(ctx, subscriptionID, s.ownerScope(caller, acting), key)
	if err != nil {
		return nil, apperr.Keep(op, err)
	}
	return sub, nil
}
