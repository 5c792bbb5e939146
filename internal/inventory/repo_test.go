package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS inventory_items (
  fulfiller_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 0,
  expires_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (fulfiller_id, product_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedItem(t *testing.T, db *gorm.DB, quantity int) *models.InventoryItem {
	t.Helper()

	item := &models.InventoryItem{
		FulfillerID:    uuid.New(),
		ProductID:      uuid.New(),
		UnitPriceCents: 1500,
		Quantity:       quantity,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestRepository_DecrementStockGuard(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := seedItem(t, db, 5)

	ok, err := repo.DecrementStock(ctx, item.FulfillerID, item.ProductID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// only 2 left, a decrement of 3 must be refused
	ok, err = repo.DecrementStock(ctx, item.FulfillerID, item.ProductID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.Find(ctx, item.FulfillerID, item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Quantity)
}

func TestRepository_DecrementStockUnknownPair(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)

	ok, err := repo.DecrementStock(context.Background(), uuid.New(), uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_IncrementStock(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	item := seedItem(t, db, 1)

	require.NoError(t, repo.IncrementStock(ctx, item.FulfillerID, item.ProductID, 4))

	reloaded, err := repo.Find(ctx, item.FulfillerID, item.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Quantity)
}
