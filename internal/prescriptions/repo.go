package prescriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Repository manages persistence for prescriptions and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rx *models.Prescription) error
	Find(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Prescription, error)
	ListByStatus(ctx context.Context, status enums.PrescriptionStatus, limit, offset int) ([]models.Prescription, error)
	ListAssigned(ctx context.Context, readerID uuid.UUID, limit, offset int) ([]models.Prescription, error)
	UpdateStatus(ctx context.Context, params StatusUpdate) (bool, error)
	AppendHistory(ctx context.Context, change *models.PrescriptionStatusChange) error
	ReplaceProcessedMedicines(ctx context.Context, prescriptionID uuid.UUID, meds []models.ProcessedMedicine) error
	AddImages(ctx context.Context, images []models.PrescriptionImage) error
	RemoveImage(ctx context.Context, prescriptionID, imageID uuid.UUID) (bool, error)
	CountImages(ctx context.Context, prescriptionID uuid.UUID) (int64, error)
	MarkOrderCreated(ctx context.Context, prescriptionID, orderID uuid.UUID) (bool, error)
}

// StatusUpdate describes a guarded status move. The update applies only while
// the row still carries FromStatus; a lost race leaves zero rows affected.
type StatusUpdate struct {
	PrescriptionID      uuid.UUID
	FromStatus          enums.PrescriptionStatus
	ToStatus            enums.PrescriptionStatus
	AssignedReaderID    *uuid.UUID
	ClearAssignedReader bool
	RejectionReason     *string
	ReaderNotes         *string
	EstimatedCompletion *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a prescriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, rx *models.Prescription) error {
	return r.db.WithContext(ctx).Create(rx).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var rx models.Prescription
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Preload("ProcessedMedicines").
		Preload("ProcessedMedicines.Alternatives").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&rx).Error; err != nil {
		return nil, err
	}
	return &rx, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Prescription, error) {
	var rows []models.Prescription
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.PrescriptionStatus, limit, offset int) ([]models.Prescription, error) {
	var rows []models.Prescription
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where("current_status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListAssigned(ctx context.Context, readerID uuid.UUID, limit, offset int) ([]models.Prescription, error) {
	var rows []models.Prescription
	if err := r.db.WithContext(ctx).
		Preload("Images").
		Where("assigned_reader_id = ?", readerID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus performs the compare-and-set transition. Returns false when the
// row was missing or no longer in FromStatus.
func (r *repository) UpdateStatus(ctx context.Context, params StatusUpdate) (bool, error) {
	updates := map[string]any{
		"current_status": params.ToStatus,
		"updated_at":     time.Now().UTC(),
	}
	if params.AssignedReaderID != nil {
		updates["assigned_reader_id"] = *params.AssignedReaderID
	}
	if params.ClearAssignedReader {
		updates["assigned_reader_id"] = nil
	}
	if params.RejectionReason != nil {
		updates["rejection_reason"] = *params.RejectionReason
	}
	if params.ReaderNotes != nil {
		updates["reader_notes"] = *params.ReaderNotes
	}
	if params.EstimatedCompletion != nil {
		updates["estimated_completion"] = *params.EstimatedCompletion
	}

	result := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND current_status = ?", params.PrescriptionID, params.FromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) AppendHistory(ctx context.Context, change *models.PrescriptionStatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repository) ReplaceProcessedMedicines(ctx context.Context, prescriptionID uuid.UUID, meds []models.ProcessedMedicine) error {
	if err := r.db.WithContext(ctx).
		Where("prescription_id = ?", prescriptionID).
		Delete(&models.ProcessedMedicine{}).Error; err != nil {
		return err
	}
	if len(meds) == 0 {
		return nil
	}
	for i := range meds {
		meds[i].PrescriptionID = prescriptionID
	}
	return r.db.WithContext(ctx).Create(&meds).Error
}

func (r *repository) AddImages(ctx context.Context, images []models.PrescriptionImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&images).Error
}

func (r *repository) RemoveImage(ctx context.Context, prescriptionID, imageID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND prescription_id = ?", imageID, prescriptionID).
		Delete(&models.PrescriptionImage{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CountImages(ctx context.Context, prescriptionID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PrescriptionImage{}).
		Where("prescription_id = ?", prescriptionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkOrderCreated flips the converted marker exactly once so an approved
// prescription cannot back two orders.
func (r *repository) MarkOrderCreated(ctx context.Context, prescriptionID, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND order_created = ?", prescriptionID, false).
		Updates(map[string]any{
			"order_created": true,
			"order_id":      orderID,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
