package controlplane

import "context"

// Client is the management control plane as seen by the provisioning engine.
//
// Lookups of a single missing record return an error wrapping ErrNotFound.
// Calls are never retried by implementations.
type Client interface {
	// Accounts
	ListAccountsByEmail(ctx context.Context, email string) ([]Account, error)
	CreateAccount(ctx context.Context, spec AccountSpec) (*Account, error)

	// Group membership
	ListAccountGroups(ctx context.Context, accountID string) ([]string, error)
	AddAccountToGroup(ctx context.Context, accountID, group string) error

	// Subscriptions
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	CreateOrUpdateSubscription(ctx context.Context, spec SubscriptionSpec) (*Subscription, error)
	RegenerateKey(ctx context.Context, subscriptionID string, key KeyType) error
	ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]Subscription, error)

	// Products
	GetProductByName(ctx context.Context, name string) (*Product, error)
}
