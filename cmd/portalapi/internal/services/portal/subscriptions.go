package portal

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

func (s *portalService) GetOwnedSubscription(ctx context.Context, subscriptionID string, owner *string) (*controlplane.Subscription, error) {
	const op = "portal.GetOwnedSubscription"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrSubscriptionID, subscriptionID),
	)
	defer span.End()

	key := subscriptionKey{ID: subscriptionID}
	if owner != nil {
		key.Owner, key.Scoped = *owner, true
	}

	sub, err := s.subscriptions.Do(ctx, key, func(ctx context.Context) (controlplane.Subscription, error) {
		fresh, err := s.fetchOwned(ctx, subscriptionID, owner)
		if err != nil {
			return controlplane.Subscription{}, err
		}
		return *fresh, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}
	return &sub, nil
}

// fetchOwned reads the subscription from the control plane, bypassing the
// lookup cache.
func (s *portalService) fetchOwned(ctx context.Context, subscriptionID string, owner *string) (*controlplane.Subscription, error) {
	const op = "portal.fetchOwned"

	sub, err := s.cp.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, classify(op, fmt.Errorf("get subscription %s: %w", subscriptionID, err))
	}
	if owner != nil && sub.OwnerID != *owner {
		return nil, apperr.Errorf(apperr.KindNotFound, op, "subscription %s is not owned by %s", subscriptionID, *owner)
	}
	return sub, nil
}

func (s *portalService) CreateSubscription(ctx context.Context, accountID, productName string) (*controlplane.Subscription, error) {
	const op = "portal.CreateSubscription"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountID, accountID),
		attribute.String(telemetry.AttrProductName, productName),
	)
	defer span.End()

	sub, err := s.createSubscription(ctx, op, s.newSubscriptionID(), accountID, productName)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrSubscriptionID, sub.ID))
	return sub, nil
}

func (s *portalService) createSubscription(ctx context.Context, op, subscriptionID, accountID, productName string) (*controlplane.Subscription, error) {
	product, err := s.cp.GetProductByName(ctx, productName)
	if err != nil {
		return nil, classify(op, fmt.Errorf("get product %s: %w", productName, err))
	}

	sub, err := s.cp.CreateOrUpdateSubscription(ctx, controlplane.SubscriptionSpec{
		ID:        subscriptionID,
		OwnerID:   accountID,
		ProductID: product.ID,
		State:     controlplane.StateActive,
	})
	if err != nil {
		return nil, classify(op, fmt.Errorf("create subscription %s: %w", subscriptionID, err))
	}

	s.logger.InfoContext(ctx, "subscription created",
		"subscription_id", sub.ID, "account_id", accountID, "product_id", product.ID)
	return sub, nil
}

func (s *portalService) manageSubscriptionID(accountID string) string {
	return s.cfg.ManagePrefix + accountID
}

func (s *portalService) isManageSubscription(id string) bool {
	return s.cfg.ManagePrefix != "" && strings.HasPrefix(id, s.cfg.ManagePrefix)
}

// hasManageSubscription reports whether the account completed onboarding.
func (s *portalService) hasManageSubscription(ctx context.Context, accountID string) (bool, error) {
	const op = "portal.hasManageSubscription"

	_, err := s.cp.GetSubscription(ctx, s.manageSubscriptionID(accountID))
	switch err := classify(op, err); {
	case err == nil:
		return true, nil
	case apperr.Is(err, apperr.KindNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *portalService) EnsureManageSubscription(ctx context.Context, account *controlplane.Account, productName string) (*controlplane.Subscription, error) {
	const op = "portal.EnsureManageSubscription"
	id := s.manageSubscriptionID(account.ID)
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountID, account.ID),
		attribute.String(telemetry.AttrSubscriptionID, id),
	)
	defer span.End()

	existing, err := s.cp.GetSubscription(ctx, id)
	if err == nil {
		return existing, nil
	}
	if err := classify(op, err); !apperr.Is(err, apperr.KindNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sub, err := s.createSubscription(ctx, op, id, account.ID, productName)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return sub, nil
}

func (s *portalService) ListSubscriptions(ctx context.Context, id auth.Identity, onBehalfOf string) ([]controlplane.Subscription, error) {
	const op = "portal.ListSubscriptions"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op)
	defer span.End()

	_, acting, err := s.resolveCaller(ctx, id, onBehalfOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	subs, err := s.listOwned(ctx, op, acting.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return subs, nil
}

// listOwned lists the subscriptions of accountID without manage subscriptions.
func (s *portalService) listOwned(ctx context.Context, op, accountID string) ([]controlplane.Subscription, error) {
	all, err := s.cp.ListSubscriptionsByOwner(ctx, accountID)
	if err != nil {
		return nil, classify(op, fmt.Errorf("list subscriptions of %s: %w", accountID, err))
	}

	out := make([]controlplane.Subscription, 0, len(all))
	for _, sub := range all {
		if !s.isManageSubscription(sub.ID) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *portalService) Subscribe(ctx context.Context, id auth.Identity, onBehalfOf string) (*controlplane.Subscription, error) {
	const op = "portal.Subscribe"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountEmail, id.PrimaryEmail()),
		attribute.String(telemetry.AttrOnBehalfOf, onBehalfOf),
	)
	defer span.End()

	account, org, err := s.subscriber(ctx, id, onBehalfOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	onboarded, err := s.hasManageSubscription(ctx, account.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	if onboarded {
		sub, err := s.CreateSubscription(ctx, account.ID, s.cfg.ProductName)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, apperr.Keep(op, err)
		}
		return sub, nil
	}

	sub, err := s.Onboard(ctx, account, org)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}
	if _, err := s.EnsureManageSubscription(ctx, account, s.cfg.ProductName); err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}
	return sub, nil
}

// subscriber returns the account a subscription is created for and the
// organization of its sandbox service. Only admins subscribe on behalf of
// another account; anyone else subscribes as themself, and their account is
// created on first use.
func (s *portalService) subscriber(ctx context.Context, id auth.Identity, onBehalfOf string) (*controlplane.Account, *auth.Organization, error) {
	if onBehalfOf != "" && emailKey(onBehalfOf) != emailKey(id.PrimaryEmail()) {
		caller, err := s.ResolveAccount(ctx, id.PrimaryEmail())
		switch {
		case err == nil && s.IsAdmin(caller):
			acting, err := s.ResolveActingAccount(ctx, id, onBehalfOf)
			return acting, nil, err
		case err != nil && !apperr.Is(err, apperr.KindNotFound):
			return nil, nil, err
		}
	}

	account, err := s.EnsureAccount(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return account, id.Organization, nil
}
