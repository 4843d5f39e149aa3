package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// dropCascades reports whether DROP TABLE must cascade to clear the foreign
// keys of the control plane tables. SQLite has no CASCADE clause.
func dropCascades(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}

// dropTables drops the tables of models in order, skipping missing ones.
func dropTables(ctx context.Context, db *bun.DB, models ...any) error {
	for _, model := range models {
		q := db.NewDropTable().Model(model).IfExists()
		if dropCascades(db) {
			q = q.Cascade()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table %T: %w", model, err)
		}
	}
	return nil
}
