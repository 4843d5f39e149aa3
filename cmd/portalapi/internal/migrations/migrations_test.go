package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/bunx"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/models"
)

func TestMigrations_UpAndDown(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.False(t, dropCascades(db))

	migrator := migrate.NewMigrator(db, Migrations)
	require.NoError(t, migrator.Init(ctx))

	group, err := migrator.Migrate(ctx)
	require.NoError(t, err)
	assert.False(t, group.IsZero())

	var product models.Product
	require.NoError(t, db.NewSelect().Model(&product).Where("name = ?", "starter").Scan(ctx))
	assert.Equal(t, StarterProductID, product.ID)

	count, err := db.NewSelect().Model((*models.Group)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	// re-running is a no-op
	group, err = migrator.Migrate(ctx)
	require.NoError(t, err)
	assert.True(t, group.IsZero())

	_, err = migrator.Rollback(ctx)
	require.NoError(t, err)

	_, err = db.NewSelect().Model((*models.Account)(nil)).Count(ctx)
	assert.Error(t, err, "tables must be dropped after rollback")
}

func TestDropTables_SkipsMissing(t *testing.T) {
	ctx := context.Background()
	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.NewCreateTable().Model((*models.Product)(nil)).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, dropTables(ctx, db, (*models.Account)(nil), (*models.Product)(nil)))
	_, err = db.NewSelect().Model((*models.Product)(nil)).Count(ctx)
	assert.Error(t, err)
}
