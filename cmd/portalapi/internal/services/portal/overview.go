package portal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/apperr"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

func (s *portalService) GetAccountOverview(ctx context.Context, id auth.Identity, onBehalfOf string) (*AccountOverview, error) {
	const op = "portal.GetAccountOverview"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op)
	defer span.End()

	_, acting, err := s.resolveCaller(ctx, id, onBehalfOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	var (
		groups []string
		subs   []controlplane.Subscription
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = s.cp.ListAccountGroups(gctx, acting.ID)
		if err != nil {
			return classify(op, fmt.Errorf("list groups of %s: %w", acting.ID, err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		subs, err = s.listOwned(gctx, op, acting.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	account := *acting
	account.Groups = groups
	return &AccountOverview{
		Account:       account,
		IsAdmin:       s.IsAdmin(&account),
		Groups:        groups,
		Subscriptions: subs,
	}, nil
}
