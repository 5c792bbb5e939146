package credits

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
)

// Repository manages persistence for customers and their credit entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
	CreateEntry(ctx context.Context, entry *models.CreditEntry) error
	ListEntries(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.CreditEntry, error)
	AddBalance(ctx context.Context, customerID uuid.UUID, deltaCents int64) (bool, error)
	DeductBalance(ctx context.Context, customerID uuid.UUID, amountCents int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a credits repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("id = ?", customerID).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.CreditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.CreditEntry, error) {
	var entries []models.CreditEntry
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// AddBalance increments the running balance. Returns false when the customer
// does not exist.
func (r *repository) AddBalance(ctx context.Context, customerID uuid.UUID, deltaCents int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE customers SET credits_cents = credits_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, time.Now().UTC(), customerID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeductBalance decrements the running balance only when it covers the amount.
// The balance guard lives in the WHERE clause so two concurrent deductions
// cannot both pass a stale read.
func (r *repository) DeductBalance(ctx context.Context, customerID uuid.UUID, amountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE customers SET credits_cents = credits_cents - ?, updated_at = ? WHERE id = ? AND credits_cents >= ?`,
		amountCents, time.Now().UTC(), customerID, amountCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
