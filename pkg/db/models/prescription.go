package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/pkg/enums"
)

// Prescription is a customer-submitted prescription moving through review.
type Prescription struct {
	ID                 uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrescriptionNumber string                     `gorm:"column:prescription_number;not null;uniqueIndex"`
	CustomerID         uuid.UUID                  `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName       string                     `gorm:"column:customer_name;not null"`
	CustomerPhone      string                     `gorm:"column:customer_phone;not null"`
	PatientName        string                     `gorm:"column:patient_name;not null"`
	PatientAge         *int                       `gorm:"column:patient_age"`
	DoctorName         *string                    `gorm:"column:doctor_name"`
	HospitalClinic     *string                    `gorm:"column:hospital_clinic"`
	Urgency            enums.Urgency              `gorm:"column:urgency;type:text;not null;default:'normal'"`
	CurrentStatus      enums.PrescriptionStatus   `gorm:"column:current_status;type:text;not null;default:'submitted'"`
	AssignedReaderID   *uuid.UUID                 `gorm:"column:assigned_reader_id;type:uuid"`
	RejectionReason    *string                    `gorm:"column:rejection_reason"`
	ReaderNotes        *string                    `gorm:"column:reader_notes"`
	EstimatedCompletion *time.Time                `gorm:"column:estimated_completion"`
	OrderCreated       bool                       `gorm:"column:order_created;not null;default:false"`
	OrderID            *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	Images             []PrescriptionImage        `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:CASCADE"`
	ProcessedMedicines []ProcessedMedicine        `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:CASCADE"`
	StatusHistory      []PrescriptionStatusChange `gorm:"foreignKey:PrescriptionID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// PrescriptionImage is an uploaded source image; the storage handle is opaque
// to the workflow core.
type PrescriptionImage struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null"`
	URL            string    `gorm:"column:url;not null"`
	StorageID      string    `gorm:"column:storage_id;not null"`
	OriginalName   string    `gorm:"column:original_name;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProcessedMedicine is a reviewer-authored orderable line attached to a
// prescription once review starts.
type ProcessedMedicine struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrescriptionID uuid.UUID             `gorm:"column:prescription_id;type:uuid;not null"`
	ProductID      *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	ProductName    string                `gorm:"column:product_name;not null"`
	Quantity       int                   `gorm:"column:quantity;not null"`
	Dosage         *string               `gorm:"column:dosage"`
	Instructions   *string               `gorm:"column:instructions"`
	UnitPriceCents int64                 `gorm:"column:unit_price_cents;not null;default:0"`
	PharmacyID     *uuid.UUID            `gorm:"column:pharmacy_id;type:uuid"`
	IsAvailable    bool                  `gorm:"column:is_available;not null;default:true"`
	Alternatives   []MedicineAlternative `gorm:"foreignKey:ProcessedMedicineID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// MedicineAlternative is a substitute option for a processed medicine.
type MedicineAlternative struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProcessedMedicineID uuid.UUID  `gorm:"column:processed_medicine_id;type:uuid;not null"`
	ProductID           *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName         string     `gorm:"column:product_name;not null"`
	UnitPriceCents      int64      `gorm:"column:unit_price_cents;not null;default:0"`
}

// PrescriptionStatusChange is one append-only status history row. Rows are
// never updated or deleted; the latest row always matches the prescription's
// current status.
type PrescriptionStatusChange struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrescriptionID uuid.UUID                `gorm:"column:prescription_id;type:uuid;not null"`
	Status         enums.PrescriptionStatus `gorm:"column:status;type:text;not null"`
	ActorID        uuid.UUID                `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole      enums.Role               `gorm:"column:actor_role;type:text;not null"`
	ActorName      string                   `gorm:"column:actor_name;not null"`
	Notes          *string                  `gorm:"column:notes"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}
