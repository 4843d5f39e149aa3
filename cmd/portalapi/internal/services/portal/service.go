package portal

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/cache"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/config"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/bunx"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/notify"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/policy"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/telemetry"
)

const tracerName = "portalapi/services/portal"

// Service is the provisioning engine.
//
// Identity-facing methods take the verified caller and an optional
// onBehalfOf email. Impersonation is honored only for admins.
type Service interface {
	// =========================================================================
	// Identity resolution
	// =========================================================================

	// ResolveAccount returns the account registered under email with its
	// groups. Results are memoized. When several accounts share the email the
	// first one returned by the control plane wins.
	ResolveAccount(ctx context.Context, email string) (*controlplane.Account, error)

	// IsAdmin reports whether account belongs to the admin group.
	IsAdmin(account *controlplane.Account) bool

	// ResolveActingAccount returns the account the caller acts as: the
	// onBehalfOf account for admins, the caller's own otherwise. Forbidden
	// when the target account does not exist.
	ResolveActingAccount(ctx context.Context, id auth.Identity, onBehalfOf string) (*controlplane.Account, error)

	// EnsureAccount returns the caller's account, creating it when missing,
	// and joins it to the default groups.
	EnsureAccount(ctx context.Context, id auth.Identity) (*controlplane.Account, error)

	// =========================================================================
	// Subscriptions
	// =========================================================================

	// GetOwnedSubscription returns the subscription when owner is nil or
	// matches its owner. NotFound otherwise. Results are memoized.
	GetOwnedSubscription(ctx context.Context, subscriptionID string, owner *string) (*controlplane.Subscription, error)

	// CreateSubscription creates a new active subscription with a fresh ULID
	// id. Every call creates a new subscription.
	CreateSubscription(ctx context.Context, accountID, productName string) (*controlplane.Subscription, error)

	// EnsureManageSubscription returns the account's manage subscription,
	// creating it when missing.
	EnsureManageSubscription(ctx context.Context, account *controlplane.Account, productName string) (*controlplane.Subscription, error)

	// AssignGroups joins account to the requested groups it is not yet a
	// member of, one at a time, and returns the groups added. A failed join
	// stops the sequence; groups already joined stay joined.
	AssignGroups(ctx context.Context, account *controlplane.Account, groups []string) ([]string, error)

	// ListSubscriptions lists the acting account's subscriptions, manage
	// subscriptions excluded.
	ListSubscriptions(ctx context.Context, id auth.Identity, onBehalfOf string) ([]controlplane.Subscription, error)

	// Subscribe creates a subscription for the acting account, onboarding
	// the account first when it has no manage subscription yet.
	Subscribe(ctx context.Context, id auth.Identity, onBehalfOf string) (*controlplane.Subscription, error)

	// =========================================================================
	// Keys
	// =========================================================================

	// RotateKey regenerates one key of an owned subscription and returns its
	// fresh state. Ownership is always checked against the control plane.
	RotateKey(ctx context.Context, subscriptionID string, owner *string, key controlplane.KeyType) (*controlplane.Subscription, error)

	// RegenerateKey is RotateKey for a verified caller.
	RegenerateKey(ctx context.Context, id auth.Identity, onBehalfOf, subscriptionID string, key controlplane.KeyType) (*controlplane.Subscription, error)

	// =========================================================================
	// Services
	// =========================================================================

	// GetService returns the notification service bound to an owned subscription.
	GetService(ctx context.Context, id auth.Identity, onBehalfOf, serviceID string) (*notify.Service, error)

	// UpdateService applies the fields of payload the caller may change.
	UpdateService(ctx context.Context, id auth.Identity, onBehalfOf, serviceID string, payload policy.ServicePayload) (*notify.Service, error)

	// =========================================================================
	// Onboarding
	// =========================================================================

	// Onboard runs the onboarding workflow for account and returns the
	// subscription it created.
	Onboard(ctx context.Context, account *controlplane.Account, org *auth.Organization) (*controlplane.Subscription, error)

	// GetAccountOverview returns the acting account with its groups and subscriptions.
	GetAccountOverview(ctx context.Context, id auth.Identity, onBehalfOf string) (*AccountOverview, error)
}

// AccountOverview is the acting account with its memberships.
type AccountOverview struct {
	Account       controlplane.Account        `json:"account"`
	IsAdmin       bool                        `json:"is_admin"`
	Groups        []string                    `json:"groups"`
	Subscriptions []controlplane.Subscription `json:"subscriptions"`
}

// subscriptionKey identifies a memoized ownership lookup. Scoped is false
// for admin lookups that bypass the owner check.
type subscriptionKey struct {
	ID     string
	Owner  string
	Scoped bool
}

type portalService struct {
	cp     controlplane.Client
	notify notify.Client
	policy *policy.Policy
	events telemetry.EventSink
	logger *slog.Logger
	cfg    config.ProvisioningConfig

	accounts      *cache.Memo[string, controlplane.Account]
	subscriptions *cache.Memo[subscriptionKey, controlplane.Subscription]

	newSubscriptionID func() string
	newAccountID      func() string
}

// Dependencies contains the collaborators of the portal service.
type Dependencies struct {
	ControlPlane controlplane.Client
	Notify       notify.Client
	Policy       *policy.Policy
	Events       telemetry.EventSink
	CacheMetrics *telemetry.CacheMetrics
	Logger       *slog.Logger

	// Optional id generators. Default to ULIDs for subscriptions and
	// UUIDv7 for accounts.
	NewSubscriptionID func() string
	NewAccountID      func() string
}

// NewService creates the portal service.
func NewService(deps Dependencies, cfg config.ProvisioningConfig) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := deps.Events
	if events == nil {
		events = telemetry.NewEventSink(logger, nil)
	}
	pol := deps.Policy
	if pol == nil {
		pol = policy.MustNew()
	}

	svc := &portalService{
		cp:     deps.ControlPlane,
		notify: deps.Notify,
		policy: pol,
		events: events,
		logger: logger,
		cfg:    cfg,

		accounts:      cache.NewMemo[string, controlplane.Account]("accounts_by_email", cfg.CacheSize, cfg.CacheTTL, deps.CacheMetrics),
		subscriptions: cache.NewMemo[subscriptionKey, controlplane.Subscription]("subscriptions_by_owner", cfg.CacheSize, cfg.CacheTTL, deps.CacheMetrics),

		newSubscriptionID: deps.NewSubscriptionID,
		newAccountID:      deps.NewAccountID,
	}
	if svc.newSubscriptionID == nil {
		svc.newSubscriptionID = func() string { return ulid.Make().String() }
	}
	if svc.newAccountID == nil {
		svc.newAccountID = bunx.NewUUIDv7
	}
	return svc
}
