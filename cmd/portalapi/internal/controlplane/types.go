// Package controlplane defines the contract of the API management control
// plane: accounts, group memberships, products and subscriptions.
//
// Two implementations exist:
//   - apim: Azure API Management REST API
//   - bunstore: local relational store for development and tests
package controlplane

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrNotFound is returned (wrapped) when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Account is a management-plane user record.
type Account struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	State     string   `json:"state"`
	Groups    []string `json:"groups"`
}

// DisplayName joins first and last name.
func (a Account) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasGroup reports whether the account is a member of group.
func (a Account) HasGroup(group string) bool {
	return slices.Contains(a.Groups, group)
}

// AccountSpec describes an account to create.
type AccountSpec struct {
	ID        string `validate:"required"`
	Email     string `validate:"required,email"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Note      string
}

// SubscriptionState is the lifecycle state of a subscription.
type SubscriptionState string

const (
	StateActive    SubscriptionState = "active"
	StateSuspended SubscriptionState = "suspended"
	StateSubmitted SubscriptionState = "submitted"
	StateRejected  SubscriptionState = "rejected"
	StateCancelled SubscriptionState = "cancelled"
	StateExpired   SubscriptionState = "expired"
)

// Subscription is a metered key pair granting access to a product. Its id
// and display name are the same value.
type Subscription struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"owner_id"`
	ProductID    string            `json:"product_id"`
	PrimaryKey   string            `json:"primary_key"`
	SecondaryKey string            `json:"secondary_key"`
	State        SubscriptionState `json:"state"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SubscriptionSpec describes a subscription to create or update.
type SubscriptionSpec struct {
	ID        string            `validate:"required,max=256"`
	OwnerID   string            `validate:"required"`
	ProductID string            `validate:"required"`
	State     SubscriptionState `validate:"required,oneof=active suspended submitted rejected cancelled expired"`
}

// Product is a named bundle of API access rules.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KeyType selects one of the two subscription keys.
type KeyType string

const (
	KeyPrimary   KeyType = "primary"
	KeySecondary KeyType = "secondary"
)

// ParseKeyType parses "primary" or "secondary" (case-insensitive).
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(strings.ToLower(s)) {
	case KeyPrimary:
		return KeyPrimary, nil
	case KeySecondary:
		return KeySecondary, nil
	default:
		return "", fmt.Errorf("invalid key type %q (expected primary or secondary)", s)
	}
}
