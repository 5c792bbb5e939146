package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
)

// Repository manages live stock per (fulfiller, product) pair.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, fulfillerID, productID uuid.UUID) (*models.InventoryItem, error)
	Upsert(ctx context.Context, item *models.InventoryItem) error
	DecrementStock(ctx context.Context, fulfillerID, productID uuid.UUID, quantity int) (bool, error)
	IncrementStock(ctx context.Context, fulfillerID, productID uuid.UUID, quantity int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, fulfillerID, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("fulfiller_id = ? AND product_id = ?", fulfillerID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DecrementStock subtracts quantity only while enough stock remains. The guard
// lives in the WHERE clause so concurrent decrements never drive quantity
// negative. Returns false when stock was insufficient or the pair is unknown.
func (r *repository) DecrementStock(ctx context.Context, fulfillerID, productID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE inventory_items SET quantity = quantity - ?, updated_at = ? WHERE fulfiller_id = ? AND product_id = ? AND quantity >= ?`,
		quantity, time.Now().UTC(), fulfillerID, productID, quantity,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementStock(ctx context.Context, fulfillerID, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE inventory_items SET quantity = quantity + ?, updated_at = ? WHERE fulfiller_id = ? AND product_id = ?`,
		quantity, time.Now().UTC(), fulfillerID, productID,
	).Error
}
