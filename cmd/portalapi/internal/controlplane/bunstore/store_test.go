package bunstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/bunx"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/migrations"
)

// setupStore creates a migrated in-memory SQLite control plane
func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return New(db)
}

func createAccount(t *testing.T, s *Store, id, email string) *controlplane.Account {
	t.Helper()
	acc, err := s.CreateAccount(context.Background(), controlplane.AccountSpec{
		ID:        id,
		Email:     email,
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	return acc
}

func TestStore_Accounts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	acc := createAccount(t, s, "a1", "ada@example.com")
	assert.Equal(t, "active", acc.State)
	assert.Equal(t, "Ada Lovelace", acc.DisplayName())

	got, err := s.ListAccountsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)

	// duplicate emails are tolerated
	createAccount(t, s, "a2", "ada@example.com")
	list, err := s.ListAccountsByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = s.ListAccountsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.CreateAccount(ctx, controlplane.AccountSpec{ID: "bad", Email: "not-an-email", FirstName: "x", LastName: "y"})
	assert.Error(t, err)
}

func TestStore_Groups(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "ada@example.com")

	require.NoError(t, s.AddAccountToGroup(ctx, "a1", "apiinforead"))
	require.NoError(t, s.AddAccountToGroup(ctx, "a1", "apiadmin"))
	// idempotent
	require.NoError(t, s.AddAccountToGroup(ctx, "a1", "apiadmin"))

	groups, err := s.ListAccountGroups(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"apiadmin", "apiinforead"}, groups)

	err = s.AddAccountToGroup(ctx, "a1", "unknown-group")
	assert.ErrorIs(t, err, controlplane.ErrNotFound)

	err = s.AddAccountToGroup(ctx, "missing", "apiadmin")
	assert.ErrorIs(t, err, controlplane.ErrNotFound)
}

func TestStore_Subscriptions(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "ada@example.com")

	product, err := s.GetProductByName(ctx, "starter")
	require.NoError(t, err)

	created, err := s.CreateOrUpdateSubscription(ctx, controlplane.SubscriptionSpec{
		ID:        "sub-1",
		OwnerID:   "a1",
		ProductID: product.ID,
		State:     controlplane.StateActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", created.OwnerID)
	assert.Equal(t, controlplane.StateActive, created.State)
	assert.Len(t, created.PrimaryKey, 32)
	assert.NotEqual(t, created.PrimaryKey, created.SecondaryKey)

	// update keeps keys
	updated, err := s.CreateOrUpdateSubscription(ctx, controlplane.SubscriptionSpec{
		ID:        "sub-1",
		OwnerID:   "a1",
		ProductID: product.ID,
		State:     controlplane.StateSuspended,
	})
	require.NoError(t, err)
	assert.Equal(t, controlplane.StateSuspended, updated.State)
	assert.Equal(t, created.PrimaryKey, updated.PrimaryKey)

	require.NoError(t, s.RegenerateKey(ctx, "sub-1", controlplane.KeySecondary))
	rotated, err := s.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, created.PrimaryKey, rotated.PrimaryKey)
	assert.NotEqual(t, created.SecondaryKey, rotated.SecondaryKey)

	err = s.RegenerateKey(ctx, "missing", controlplane.KeyPrimary)
	assert.ErrorIs(t, err, controlplane.ErrNotFound)

	_, err = s.GetSubscription(ctx, "missing")
	assert.ErrorIs(t, err, controlplane.ErrNotFound)

	subs, err := s.ListSubscriptionsByOwner(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].ID)

	_, err = s.CreateOrUpdateSubscription(ctx, controlplane.SubscriptionSpec{ID: "x", OwnerID: "a1", ProductID: product.ID, State: "bogus"})
	assert.Error(t, err)
}

func TestStore_Products(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GetProductByName(ctx, "premium")
	assert.ErrorIs(t, err, controlplane.ErrNotFound)

	require.NoError(t, s.CreateProduct(ctx, "p-premium", "premium"))
	require.NoError(t, s.CreateGroup(ctx, "ops", "operators"))

	p, err := s.GetProductByName(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, "p-premium", p.ID)
}

func TestStore_EnsureCatalog(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	createAccount(t, s, "a1", "ada@example.com")

	require.NoError(t, s.EnsureCatalog(ctx, "premium", "ops", "apiinforead"))
	// idempotent, and the seeded product keeps its id
	require.NoError(t, s.EnsureCatalog(ctx, "premium", "ops"))
	require.NoError(t, s.EnsureCatalog(ctx, "starter"))

	p, err := s.GetProductByName(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, "premium", p.ID)

	p, err = s.GetProductByName(ctx, "starter")
	require.NoError(t, err)
	assert.Equal(t, migrations.StarterProductID, p.ID)

	require.NoError(t, s.AddAccountToGroup(ctx, "a1", "ops"))
	groups, err := s.ListAccountGroups(ctx, "a1")
	require.NoError(t, err)
	assert.Contains(t, groups, "ops")
}
