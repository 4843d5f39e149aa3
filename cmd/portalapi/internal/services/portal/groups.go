package portal

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

// missingGroups returns the requested groups account is not a member of,
// deduplicated, in request order.
func missingGroups(account *controlplane.Account, requested []string) []string {
	var missing []string
	for _, g := range requested {
		if g == "" || account.HasGroup(g) || slices.Contains(missing, g) {
			continue
		}
		missing = append(missing, g)
	}
	return missing
}

// AssignGroups joins sequentially: concurrent joins against the management
// plane leave membership inconsistent. account.Groups is updated after every
// successful join.
func (s *portalService) AssignGroups(ctx context.Context, account *controlplane.Account, groups []string) ([]string, error) {
	const op = "portal.AssignGroups"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountID, account.ID),
		attribute.StringSlice(telemetry.AttrGroupsRequested, groups),
	)
	defer span.End()

	missing := missingGroups(account, groups)
	if len(missing) == 0 {
		return []string{}, nil
	}

	added := make([]string, 0, len(missing))
	defer func() {
		span.SetAttributes(attribute.StringSlice(telemetry.AttrGroupsAdded, added))
		if len(added) > 0 {
			s.accounts.Invalidate(func(k string) bool { return k == emailKey(account.Email) })
		}
	}()

	for _, group := range missing {
		if err := s.cp.AddAccountToGroup(ctx, account.ID, group); err != nil {
			err = classify(op, fmt.Errorf("join %s to %s (added so far: %s): %w",
				account.ID, group, strings.Join(added, ","), err))
			telemetry.RecordError(span, err)
			return added, err
		}
		added = append(added, group)
		account.Groups = append(slices.Clip(account.Groups), group)
	}

	s.logger.InfoContext(ctx, "account joined groups", "account_id", account.ID, "groups", added)
	return added, nil
}
