// Package bunstore implements the control plane on a relational database
// through bun. It backs local development and tests; the remote API
// Management instance remains the source of truth in production.
package bunstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/models"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/validate"
)

// Store implements controlplane.Client using Bun ORM
type Store struct {
	db *bun.DB
}

var _ controlplane.Client = (*Store)(nil)

// New creates a new Bun-based control plane
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// ListAccountsByEmail returns every account registered with email, oldest first
func (s *Store) ListAccountsByEmail(ctx context.Context, email string) ([]controlplane.Account, error) {
	var rows []models.Account
	err := s.db.NewSelect().
		Model(&rows).
		Where("email = ?", email).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts by email: %w", err)
	}

	accounts := make([]controlplane.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, toAccount(&rows[i]))
	}
	return accounts, nil
}

// CreateAccount inserts a new active account
func (s *Store) CreateAccount(ctx context.Context, spec controlplane.AccountSpec) (*controlplane.Account, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid account spec: %w", err)
	}

	row := &models.Account{
		ID:        spec.ID,
		Email:     spec.Email,
		FirstName: spec.FirstName,
		LastName:  spec.LastName,
		State:     "active",
		Note:      spec.Note,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account := toAccount(row)
	return &account, nil
}

// ListAccountGroups returns the group names the account belongs to, sorted by name
func (s *Store) ListAccountGroups(ctx context.Context, accountID string) ([]string, error) {
	var groups []string
	err := s.db.NewSelect().
		Model((*models.AccountGroup)(nil)).
		Column("group_name").
		Where("account_id = ?", accountID).
		Order("group_name ASC").
		Scan(ctx, &groups)
	if err != nil {
		return nil, fmt.Errorf("list account groups: %w", err)
	}
	return groups, nil
}

// AddAccountToGroup adds a membership; existing memberships are left untouched
func (s *Store) AddAccountToGroup(ctx context.Context, accountID, group string) error {
	exists, err := s.db.NewSelect().
		Model((*models.Group)(nil)).
		Where("name = ?", group).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check group: %w", err)
	}
	if !exists {
		return fmt.Errorf("group %s: %w", group, controlplane.ErrNotFound)
	}

	exists, err = s.db.NewSelect().
		Model((*models.Account)(nil)).
		Where("id = ?", accountID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return fmt.Errorf("account %s: %w", accountID, controlplane.ErrNotFound)
	}

	membership := &models.AccountGroup{
		AccountID: accountID,
		GroupName: group,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.NewInsert().
		Model(membership).
		On("CONFLICT (account_id, group_name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add account to group: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by its ID
func (s *Store) GetSubscription(ctx context.Context, id string) (*controlplane.Subscription, error) {
	row := new(models.Subscription)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription %s: %w", id, controlplane.ErrNotFound)
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	sub := toSubscription(row)
	return &sub, nil
}

// CreateOrUpdateSubscription upserts a subscription. New subscriptions get a
// fresh key pair; updates keep existing keys.
func (s *Store) CreateOrUpdateSubscription(ctx context.Context, spec controlplane.SubscriptionSpec) (*controlplane.Subscription, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid subscription spec: %w", err)
	}

	primary, err := newKey()
	if err != nil {
		return nil, err
	}
	secondary, err := newKey()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := &models.Subscription{
		ID:           spec.ID,
		OwnerID:      spec.OwnerID,
		ProductID:    spec.ProductID,
		PrimaryKey:   primary,
		SecondaryKey: secondary,
		State:        string(spec.State),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("owner_id = EXCLUDED.owner_id").
			Set("product_id = EXCLUDED.product_id").
			Set("state = EXCLUDED.state").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(row).WherePK().Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("create or update subscription: %w", err)
	}

	sub := toSubscription(row)
	return &sub, nil
}

// RegenerateKey replaces the selected key with a new random value
func (s *Store) RegenerateKey(ctx context.Context, subscriptionID string, key controlplane.KeyType) error {
	column := "primary_key"
	if key == controlplane.KeySecondary {
		column = "secondary_key"
	}

	value, err := newKey()
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().
		Model((*models.Subscription)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", subscriptionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("regenerate %s key: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("regenerate %s key: %w", key, err)
	}
	if rows == 0 {
		return fmt.Errorf("subscription %s: %w", subscriptionID, controlplane.ErrNotFound)
	}
	return nil
}

// ListSubscriptionsByOwner returns the owner's subscriptions, oldest first
func (s *Store) ListSubscriptionsByOwner(ctx context.Context, ownerID string) ([]controlplane.Subscription, error) {
	var rows []models.Subscription
	err := s.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions by owner: %w", err)
	}

	subs := make([]controlplane.Subscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, toSubscription(&rows[i]))
	}
	return subs, nil
}

// GetProductByName retrieves a product by its display name
func (s *Store) GetProductByName(ctx context.Context, name string) (*controlplane.Product, error) {
	row := new(models.Product)
	err := s.db.NewSelect().
		Model(row).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", name, controlplane.ErrNotFound)
		}
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	return &controlplane.Product{ID: row.ID, Name: row.Name}, nil
}

// CreateProduct registers a product.
func (s *Store) CreateProduct(ctx context.Context, id, name string) error {
	_, err := s.db.NewInsert().
		Model(&models.Product{ID: id, Name: name, CreatedAt: time.Now().UTC()}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// CreateGroup registers a group.
func (s *Store) CreateGroup(ctx context.Context, name, description string) error {
	_, err := s.db.NewInsert().
		Model(&models.Group{Name: name, Description: description, CreatedAt: time.Now().UTC()}).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// EnsureCatalog registers the product and groups the provisioning settings
// refer to, so a store seeded with the default catalog also serves a
// customized one. Existing rows are left untouched.
func (s *Store) EnsureCatalog(ctx context.Context, product string, groups ...string) error {
	if _, err := s.GetProductByName(ctx, product); err != nil {
		if !errors.Is(err, controlplane.ErrNotFound) {
			return err
		}
		if err := s.CreateProduct(ctx, product, product); err != nil {
			return err
		}
	}
	for _, g := range groups {
		if err := s.CreateGroup(ctx, g, ""); err != nil {
			return err
		}
	}
	return nil
}

func toAccount(row *models.Account) controlplane.Account {
	return controlplane.Account{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
		State:     row.State,
	}
}

func toSubscription(row *models.Subscription) controlplane.Subscription {
	return controlplane.Subscription{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		ProductID:    row.ProductID,
		PrimaryKey:   row.PrimaryKey,
		SecondaryKey: row.SecondaryKey,
		State:        controlplane.SubscriptionState(row.State),
		CreatedAt:    row.CreatedAt,
	}
}

// newKey returns a 128-bit hex subscription key
func newKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate subscription key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
