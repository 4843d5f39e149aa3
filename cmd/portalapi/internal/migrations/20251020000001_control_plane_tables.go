package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20251020000001, down_20251020000001)
}

// up_20251020000001 creates the local control plane tables
func up_20251020000001(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		name  string
		model any
	}{
		{"accounts", (*models.Account)(nil)},
		{"api_groups", (*models.Group)(nil)},
		{"account_groups", (*models.AccountGroup)(nil)},
		{"products", (*models.Product)(nil)},
		{"subscriptions", (*models.Subscription)(nil)},
	}

	for _, t := range tables {
		fmt.Printf(" [up] creating %s table...", t.name)
		if _, err := db.NewCreateTable().Model(t.model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		fmt.Println(" OK")
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_owner_id ON subscriptions(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_account_groups_account_id ON account_groups(account_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// down_20251020000001 drops the local control plane tables
func down_20251020000001(ctx context.Context, db *bun.DB) error {
	return dropTables(ctx, db,
		(*models.Subscription)(nil),
		(*models.Product)(nil),
		(*models.AccountGroup)(nil),
		(*models.Group)(nil),
		(*models.Account)(nil),
	)
}
