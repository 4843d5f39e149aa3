package portal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/policy"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

// authorizeService checks that the caller may act on serviceID. Services
// share their id with the subscription that sends through them.
func (s *portalService) authorizeService(ctx context.Context, id auth.Identity, onBehalfOf, serviceID string) (*controlplane.Account, error) {
	caller, acting, err := s.resolveCaller(ctx, id, onBehalfOf)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetOwnedSubscription(ctx, serviceID, s.ownerScope(caller, acting)); err != nil {
		return nil, err
	}
	return caller, nil
}

func (s *portalService) GetService(ctx context.Context, id auth.Identity, onBehalfOf, serviceID string) (*notify.Service, error) {
	const op = "portal.GetService"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrServiceID, serviceID),
	)
	defer span.End()

	if _, err := s.authorizeService(ctx, id, onBehalfOf, serviceID); err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	svc, err := s.notify.GetService(ctx, serviceID)
	if err != nil {
		err = classify(op, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return svc, nil
}

func (s *portalService) UpdateService(ctx context.Context, id auth.Identity, onBehalfOf, serviceID string, payload policy.ServicePayload) (*notify.Service, error) {
	const op = "portal.UpdateService"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrServiceID, serviceID),
	)
	defer span.End()

	caller, err := s.authorizeService(ctx, id, onBehalfOf, serviceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	original, err := s.notify.GetService(ctx, serviceID)
	if err != nil {
		err = classify(op, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	isAdmin := s.IsAdmin(caller)
	merged, dropped := s.policy.Merge(isAdmin, *original, payload)
	merged.ServiceID = serviceID
	if len(dropped) > 0 {
		s.logger.DebugContext(ctx, "service update fields dropped",
			"service_id", serviceID, "account_id", caller.ID, "admin", isAdmin, "fields", dropped)
	}

	updated, err := s.notify.UpdateService(ctx, merged)
	if err != nil {
		err = classify(op, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return updated, nil
}
