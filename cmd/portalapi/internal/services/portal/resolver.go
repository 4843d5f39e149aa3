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

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *portalService) ResolveAccount(ctx context.Context, email string) (*controlplane.Account, error) {
	const op = "portal.ResolveAccount"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountEmail, email),
	)
	defer span.End()

	if strings.TrimSpace(email) == "" {
		err := apperr.Errorf(apperr.KindNotFound, op, "empty email")
		telemetry.RecordError(span, err)
		return nil, err
	}

	account, err := s.accounts.Do(ctx, emailKey(email), func(ctx context.Context) (controlplane.Account, error) {
		accounts, err := s.cp.ListAccountsByEmail(ctx, email)
		if err != nil {
			return controlplane.Account{}, classify(op, fmt.Errorf("list accounts: %w", err))
		}
		if len(accounts) == 0 {
			return controlplane.Account{}, apperr.Errorf(apperr.KindNotFound, op, "no account for %s", email)
		}
		if len(accounts) > 1 {
			s.logger.WarnContext(ctx, "several accounts share one email, using the first",
				"email", email, "count", len(accounts), "account_id", accounts[0].ID)
		}

		account := accounts[0]
		groups, err := s.cp.ListAccountGroups(ctx, account.ID)
		if err != nil {
			return controlplane.Account{}, classify(op, fmt.Errorf("list groups of %s: %w", account.ID, err))
		}
		account.Groups = groups
		return account, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.AttrAccountID, account.ID))
	return &account, nil
}

func (s *portalService) IsAdmin(account *controlplane.Account) bool {
	return account != nil && account.HasGroup(s.cfg.AdminGroup)
}

func (s *portalService) ResolveActingAccount(ctx context.Context, id auth.Identity, onBehalfOf string) (*controlplane.Account, error) {
	_, acting, err := s.resolveCaller(ctx, id, onBehalfOf)
	return acting, err
}

// resolveCaller returns the caller's own account and the account it acts as.
// The two are the same unless an admin impersonates onBehalfOf.
func (s *portalService) resolveCaller(ctx context.Context, id auth.Identity, onBehalfOf string) (caller, acting *controlplane.Account, err error) {
	const op = "portal.ResolveActingAccount"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountEmail, id.PrimaryEmail()),
		attribute.String(telemetry.AttrOnBehalfOf, onBehalfOf),
	)
	defer span.End()

	caller, err = s.ResolveAccount(ctx, id.PrimaryEmail())
	if err != nil {
		err = forbidIfMissing(op, err)
		telemetry.RecordError(span, err)
		return nil, nil, err
	}

	isAdmin := s.IsAdmin(caller)
	span.SetAttributes(attribute.Bool(telemetry.AttrAccountAdmin, isAdmin))

	if onBehalfOf == "" || emailKey(onBehalfOf) == emailKey(id.PrimaryEmail()) || !isAdmin {
		return caller, caller, nil
	}

	acting, err = s.ResolveAccount(ctx, onBehalfOf)
	if err != nil {
		err = forbidIfMissing(op, err)
		telemetry.RecordError(span, err)
		return nil, nil, err
	}
	return caller, acting, nil
}

// forbidIfMissing turns a missing account into Forbidden.
func forbidIfMissing(op string, err error) error {
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Forbidden(op, err)
	}
	return apperr.Keep(op, err)
}

// ownerScope returns the owner filter for ownership checks: nil for admins.
func (s *portalService) ownerScope(caller, acting *controlplane.Account) *string {
	if s.IsAdmin(caller) {
		return nil
	}
	owner := acting.ID
	return &owner
}

func (s *portalService) EnsureAccount(ctx context.Context, id auth.Identity) (*controlplane.Account, error) {
	const op = "portal.EnsureAccount"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.String(telemetry.AttrAccountEmail, id.PrimaryEmail()),
	)
	defer span.End()

	account, err := s.ResolveAccount(ctx, id.PrimaryEmail())
	switch {
	case err == nil:
	case apperr.Is(err, apperr.KindNotFound):
		account, err = s.createAccount(ctx, id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, apperr.Keep(op, err)
		}
		telemetry.AddEvent(span, "account.created", attribute.String(telemetry.AttrAccountID, account.ID))
	default:
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}

	if _, err := s.AssignGroups(ctx, account, s.cfg.DefaultGroups); err != nil {
		telemetry.RecordError(span, err)
		return nil, apperr.Keep(op, err)
	}
	return account, nil
}

func (s *portalService) createAccount(ctx context.Context, id auth.Identity) (*controlplane.Account, error) {
	const op = "portal.createAccount"

	email := id.PrimaryEmail()
	first, last := id.GivenName, id.FamilyName
	if first == "" {
		first, _, _ = strings.Cut(email, "@")
	}
	if last == "" {
		last = "-"
	}

	created, err := s.cp.CreateAccount(ctx, controlplane.AccountSpec{
		ID:        s.newAccountID(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Note:      "subject " + id.Subject,
	})
	if err != nil {
		return nil, classify(op, fmt.Errorf("create account for %s: %w", email, err))
	}

	s.accounts.Invalidate(func(k string) bool { return k == emailKey(email) })
	s.logger.InfoContext(ctx, "account created", "account_id", created.ID, "email", email)
	return created, nil
}
