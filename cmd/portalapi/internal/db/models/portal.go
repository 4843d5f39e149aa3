package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Account is a provisioned caller of the local control plane.
// Email is indexed but not unique: the remote control plane allows duplicates
// and lookups resolve them by first match.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,notnull"`
	FirstName string    `bun:"first_name,notnull"`
	LastName  string    `bun:"last_name,notnull"`
	State     string    `bun:"state,notnull,default:'active'"`
	Note      string    `bun:"note"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Group is a named membership granting API permissions.
type Group struct {
	bun.BaseModel `bun:"table:api_groups,alias:g"`

	Name        string    `bun:"name,pk"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AccountGroup links an account to a group.
type AccountGroup struct {
	bun.BaseModel `bun:"table:account_groups,alias:ag"`

	AccountID string    `bun:"account_id,pk"`
	GroupName string    `bun:"group_name,pk"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Product is a named bundle of API access rules.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Subscription is a key pair granting an account access to a product.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:s"`

	ID           string    `bun:"id,pk"`
	OwnerID      string    `bun:"owner_id,notnull"`
	ProductID    string    `bun:"product_id,notnull"`
	PrimaryKey   string    `bun:"primary_key,notnull"`
	SecondaryKey string    `bun:"secondary_key,notnull"`
	State        string    `bun:"state,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
