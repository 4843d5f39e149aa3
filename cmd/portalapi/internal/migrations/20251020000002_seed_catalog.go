package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/db/models"
)

// Seeded product id of the default "starter" product.
const StarterProductID = "starter"

func init() {
	Migrations.MustRegister(up_20251020000002, down_20251020000002)
}

// up_20251020000002 seeds the default product and permission groups
func up_20251020000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding products...")
	product := models.Product{
		ID:          StarterProductID,
		Name:        "starter",
		Description: "Default product for new accounts",
	}
	if _, err := db.NewInsert().
		Model(&product).
		On("CONFLICT (id) DO NOTHING"). // Idempotent
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed product %s: %w", product.Name, err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding groups...")
	groups := []models.Group{
		{Name: "apiadmin", Description: "Bypasses ownership checks"},
		{Name: "apilimitedmessagewrite", Description: "Send messages to authorized recipients"},
		{Name: "apiinforead", Description: "Read service information"},
		{Name: "apimessageread", Description: "Read sent messages"},
		{Name: "apilimitedprofileread", Description: "Read profiles of authorized recipients"},
		{Name: "apiservicewrite", Description: "Create and update services"},
	}
	for _, g := range groups {
		if _, err := db.NewInsert().
			Model(&g).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed group %s: %w", g.Name, err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20251020000002 removes seeded catalog rows
func down_20251020000002(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewDelete().Model((*models.Product)(nil)).Where("id = ?", StarterProductID).Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove seeded product: %w", err)
	}
	if _, err := db.NewDelete().Model((*models.Group)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove seeded groups: %w", err)
	}
	return nil
}
