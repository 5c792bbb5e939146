package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/internal/notifications"
	"github.com/Icecubesaad/cura-backend/internal/workflow"
	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
	"github.com/Icecubesaad/cura-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

const prescriptionSequence = "prescription_number"

// Service defines the prescription review workflow.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Prescription, error)
	Claim(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error
	Annotate(ctx context.Context, input AnnotateInput) error
	Cancel(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, reason string) error
	Resubmit(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error
	AddImages(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, images []ImageInput) error
	RemoveImage(ctx context.Context, prescriptionID, imageID uuid.UUID, actor workflow.Actor) error
	Get(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) (*models.Prescription, error)
	Queue(ctx context.Context, params ListParams) ([]models.Prescription, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Prescription, error)
	ListAssigned(ctx context.Context, readerID uuid.UUID, params ListParams) ([]models.Prescription, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	seq      sequencer
	notifier notifications.Notifier
	metrics  *metrics.WorkflowMetrics
	cfg      config.WorkflowConfig
	now      func() time.Time
}

// SubmitInput carries everything a new prescription requires.
type SubmitInput struct {
	CustomerID     uuid.UUID
	CustomerName   string
	CustomerPhone  string
	PatientName    string
	PatientAge     *int
	DoctorName     *string
	HospitalClinic *string
	Urgency        enums.Urgency
	Images         []ImageInput
}

// ImageInput is one uploaded source image handle.
type ImageInput struct {
	URL          string
	StorageID    string
	OriginalName string
}

// MedicineInput is one reviewer-authored orderable line.
type MedicineInput struct {
	ProductID      *uuid.UUID
	ProductName    string
	Quantity       int
	Dosage         *string
	Instructions   *string
	UnitPriceCents int64
	PharmacyID     *uuid.UUID
	IsAvailable    bool
	Alternatives   []AlternativeInput
}

// AlternativeInput is a substitute option for a medicine line.
type AlternativeInput struct {
	ProductID      *uuid.UUID
	ProductName    string
	UnitPriceCents int64
}

// AnnotateInput captures the reviewer's decision on a claimed prescription.
type AnnotateInput struct {
	PrescriptionID  uuid.UUID
	Actor           workflow.Actor
	Decision        enums.PrescriptionStatus
	Medicines       []MedicineInput
	Notes           *string
	RejectionReason *string
}

// ListParams configures paging for prescription listings.
type ListParams struct {
	Status enums.PrescriptionStatus
	Limit  int
	Offset int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// NewService wires the prescription workflow with its dependencies.
func NewService(repo Repository, tx txRunner, seq sequencer, notifier notifications.Notifier, wm *metrics.WorkflowMetrics, cfg config.WorkflowConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("prescriptions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if seq == nil {
		return nil, fmt.Errorf("sequencer required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		seq:      seq,
		notifier: notifier,
		metrics:  wm,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Prescription, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.PatientName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "patient name required")
	}
	if len(input.Images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one prescription image required")
	}
	if len(input.Images) > s.cfg.MaxPrescriptionImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d prescription images allowed", s.cfg.MaxPrescriptionImages))
	}
	if !input.Urgency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid urgency %q", input.Urgency))
	}

	number, err := s.nextPrescriptionNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate prescription number")
	}

	rx := &models.Prescription{
		ID:                 uuid.New(),
		PrescriptionNumber: number,
		CustomerID:         input.CustomerID,
		CustomerName:       input.CustomerName,
		CustomerPhone:      input.CustomerPhone,
		PatientName:        input.PatientName,
		PatientAge:         input.PatientAge,
		DoctorName:         input.DoctorName,
		HospitalClinic:     input.HospitalClinic,
		Urgency:            input.Urgency,
		CurrentStatus:      enums.PrescriptionStatusSubmitted,
	}
	for _, img := range input.Images {
		rx.Images = append(rx.Images, models.PrescriptionImage{
			ID:             uuid.New(),
			PrescriptionID: rx.ID,
			URL:            img.URL,
			StorageID:      img.StorageID,
			OriginalName:   img.OriginalName,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, rx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create prescription")
		}
		return s.appendHistory(ctx, repo, rx.ID, enums.PrescriptionStatusSubmitted, workflow.Actor{
			ID:   input.CustomerID,
			Role: enums.RoleCustomer,
			Name: input.CustomerName,
		}, nil)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(workflow.KindPrescription), string(enums.PrescriptionStatusSubmitted))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventPrescriptionSubmitted,
		Audience: notifications.AudienceReviewers,
		Payload: map[string]any{
			"prescription_id":     rx.ID.String(),
			"prescription_number": rx.PrescriptionNumber,
			"urgency":             string(rx.Urgency),
		},
	})
	return rx, nil
}

// Claim moves a submitted prescription into review and assigns the caller as
// its reader. The status move is a compare-and-set, so of two concurrent
// claimers exactly one wins; the loser gets a conflict.
func (s *service) Claim(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error {
	if prescriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription id required")
	}
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if !workflow.CanTransitionPrescription(enums.PrescriptionStatusSubmitted, enums.PrescriptionStatusReviewing, actor.Role) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "role may not claim prescriptions")
	}

	var rx *models.Prescription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.Find(ctx, prescriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
		}
		rx = found

		estimated := workflow.EstimateCompletion(s.now(), enums.PrescriptionStatusReviewing, rx.Urgency, s.baseDurations())
		readerID := actor.ID
		updated, err := repo.UpdateStatus(ctx, StatusUpdate{
			PrescriptionID:      prescriptionID,
			FromStatus:          enums.PrescriptionStatusSubmitted,
			ToStatus:            enums.PrescriptionStatusReviewing,
			AssignedReaderID:    &readerID,
			EstimatedCompletion: &estimated,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim prescription")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindPrescription))
			return pkgerrors.New(pkgerrors.CodeConflict, "prescription already claimed")
		}

		return s.appendHistory(ctx, repo, prescriptionID, enums.PrescriptionStatusReviewing, actor, nil)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition(string(workflow.KindPrescription), string(enums.PrescriptionStatusReviewing))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventPrescriptionClaimed,
		Audience: notifications.AudienceCustomer(rx.CustomerID),
		Payload: map[string]any{
			"prescription_id":     prescriptionID.String(),
			"prescription_number": rx.PrescriptionNumber,
			"status":              string(enums.PrescriptionStatusReviewing),
		},
	})
	return nil
}

// Annotate records the reviewer's decision. Only the assigned reader may
// annotate, and only while the prescription is still in review.
func (s *service) Annotate(ctx context.Context, input AnnotateInput) error {
	if input.PrescriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription id required")
	}
	if input.Actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	switch input.Decision {
	case enums.PrescriptionStatusApproved, enums.PrescriptionStatusRejected, enums.PrescriptionStatusSuspended:
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid decision %q", input.Decision))
	}
	if input.Decision == enums.PrescriptionStatusRejected && (input.RejectionReason == nil || *input.RejectionReason == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	for _, med := range input.Medicines {
		if med.ProductName == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "medicine product name required")
		}
		if med.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "medicine quantity must be positive")
		}
	}

	var rx *models.Prescription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.Find(ctx, input.PrescriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
		}
		rx = found

		if rx.CurrentStatus != enums.PrescriptionStatusReviewing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "prescription is not under review")
		}
		if rx.AssignedReaderID == nil || *rx.AssignedReaderID != input.Actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned reader may annotate")
		}
		if !workflow.CanTransitionPrescription(enums.PrescriptionStatusReviewing, input.Decision, input.Actor.Role) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not permitted")
		}

		meds := make([]models.ProcessedMedicine, 0, len(input.Medicines))
		for _, med := range input.Medicines {
			row := models.ProcessedMedicine{
				ID:             uuid.New(),
				PrescriptionID: input.PrescriptionID,
				ProductID:      med.ProductID,
				ProductName:    med.ProductName,
				Quantity:       med.Quantity,
				Dosage:         med.Dosage,
				Instructions:   med.Instructions,
				UnitPriceCents: med.UnitPriceCents,
				PharmacyID:     med.PharmacyID,
				IsAvailable:    med.IsAvailable,
			}
			for _, alt := range med.Alternatives {
				row.Alternatives = append(row.Alternatives, models.MedicineAlternative{
					ID:                  uuid.New(),
					ProcessedMedicineID: row.ID,
					ProductID:           alt.ProductID,
					ProductName:         alt.ProductName,
					UnitPriceCents:      alt.UnitPriceCents,
				})
			}
			meds = append(meds, row)
		}
		if err := repo.ReplaceProcessedMedicines(ctx, input.PrescriptionID, meds); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach processed medicines")
		}

		update := StatusUpdate{
			PrescriptionID:  input.PrescriptionID,
			FromStatus:      enums.PrescriptionStatusReviewing,
			ToStatus:        input.Decision,
			ReaderNotes:     input.Notes,
			RejectionReason: input.RejectionReason,
		}
		if input.Decision == enums.PrescriptionStatusSuspended {
			estimated := workflow.EstimateCompletion(s.now(), enums.PrescriptionStatusSuspended, rx.Urgency, s.baseDurations())
			update.EstimatedCompletion = &estimated
		}

		updated, err := repo.UpdateStatus(ctx, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply decision")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindPrescription))
			return pkgerrors.New(pkgerrors.CodeConflict, "prescription changed concurrently")
		}

		return s.appendHistory(ctx, repo, input.PrescriptionID, input.Decision, input.Actor, input.Notes)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition(string(workflow.KindPrescription), string(input.Decision))
	s.notifier.Notify(ctx, notifications.Event{
		Type:     notifications.EventPrescriptionDecided,
		Audience: notifications.AudienceCustomer(rx.CustomerID),
		Payload: map[string]any{
			"prescription_id":     input.PrescriptionID.String(),
			"prescription_number": rx.PrescriptionNumber,
			"status":              string(input.Decision),
		},
	})
	return nil
}

func (s *service) Cancel(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, reason string) error {
	return s.transition(ctx, prescriptionID, actor, enums.PrescriptionStatusCancelled, reason)
}

// Resubmit reopens a rejected prescription so the customer can try again.
func (s *service) Resubmit(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error {
	return s.transition(ctx, prescriptionID, actor, enums.PrescriptionStatusSubmitted, "")
}

func (s *service) transition(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, target enums.PrescriptionStatus, reason string) error {
	if prescriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription id required")
	}
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	var rx *models.Prescription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.Find(ctx, prescriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
		}
		rx = found

		if actor.Role == enums.RoleCustomer && rx.CustomerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "prescription belongs to another customer")
		}
		if !workflow.CanTransitionPrescription(rx.CurrentStatus, target, actor.Role) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move prescription from %s to %s", rx.CurrentStatus, target))
		}

		update := StatusUpdate{
			PrescriptionID: prescriptionID,
			FromStatus:     rx.CurrentStatus,
			ToStatus:       target,
		}
		if target == enums.PrescriptionStatusSubmitted {
			update.ClearAssignedReader = true
		}
		updated, err := repo.UpdateStatus(ctx, update)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update prescription status")
		}
		if !updated {
			s.metrics.IncConflict(string(workflow.KindPrescription))
			return pkgerrors.New(pkgerrors.CodeConflict, "prescription changed concurrently")
		}

		var notes *string
		if reason != "" {
			notes = &reason
		}
		return s.appendHistory(ctx, repo, prescriptionID, target, actor, notes)
	})
	if err != nil {
		return err
	}

	s.metrics.IncTransition(string(workflow.KindPrescription), string(target))
	eventType := notifications.EventPrescriptionCancelled
	if target != enums.PrescriptionStatusCancelled {
		eventType = notifications.EventPrescriptionSubmitted
	}
	audience := notifications.AudienceCustomer(rx.CustomerID)
	if target == enums.PrescriptionStatusSubmitted {
		audience = notifications.AudienceReviewers
	}
	s.notifier.Notify(ctx, notifications.Event{
		Type:     eventType,
		Audience: audience,
		Payload: map[string]any{
			"prescription_id":     prescriptionID.String(),
			"prescription_number": rx.PrescriptionNumber,
			"status":              string(target),
		},
	})
	return nil
}

// AddImages appends images to a prescription that is still editable.
func (s *service) AddImages(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, images []ImageInput) error {
	if prescriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription id required")
	}
	if len(images) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one image required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rx, err := s.editablePrescription(ctx, repo, prescriptionID, actor)
		if err != nil {
			return err
		}

		count, err := repo.CountImages(ctx, prescriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count images")
		}
		if int(count)+len(images) > s.cfg.MaxPrescriptionImages {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d prescription images allowed", s.cfg.MaxPrescriptionImages))
		}

		rows := make([]models.PrescriptionImage, 0, len(images))
		for _, img := range images {
			rows = append(rows, models.PrescriptionImage{
				ID:             uuid.New(),
				PrescriptionID: rx.ID,
				URL:            img.URL,
				StorageID:      img.StorageID,
				OriginalName:   img.OriginalName,
			})
		}
		if err := repo.AddImages(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add images")
		}
		return nil
	})
}

// RemoveImage deletes one image while the prescription is still editable. The
// last remaining image can never be removed.
func (s *service) RemoveImage(ctx context.Context, prescriptionID, imageID uuid.UUID, actor workflow.Actor) error {
	if prescriptionID == uuid.Nil || imageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "prescription and image ids required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := s.editablePrescription(ctx, repo, prescriptionID, actor); err != nil {
			return err
		}

		count, err := repo.CountImages(ctx, prescriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count images")
		}
		if count <= 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "a prescription must keep at least one image")
		}

		removed, err := repo.RemoveImage(ctx, prescriptionID, imageID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove image")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) (*models.Prescription, error) {
	if prescriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prescription id required")
	}
	rx, err := s.repo.Find(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
	}
	if actor.Role == enums.RoleCustomer && rx.CustomerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "prescription belongs to another customer")
	}
	return rx, nil
}

// Queue lists unclaimed prescriptions for the reviewer pool, oldest first.
func (s *service) Queue(ctx context.Context, params ListParams) ([]models.Prescription, error) {
	status := params.Status
	if status == "" {
		status = enums.PrescriptionStatusSubmitted
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	limit, offset := normalizePage(params)
	rows, err := s.repo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	return rows, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params ListParams) ([]models.Prescription, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	limit, offset := normalizePage(params)
	rows, err := s.repo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	return rows, nil
}

func (s *service) ListAssigned(ctx context.Context, readerID uuid.UUID, params ListParams) ([]models.Prescription, error) {
	if readerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reader id required")
	}
	limit, offset := normalizePage(params)
	rows, err := s.repo.ListAssigned(ctx, readerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	return rows, nil
}

func (s *service) editablePrescription(ctx context.Context, repo Repository, prescriptionID uuid.UUID, actor workflow.Actor) (*models.Prescription, error) {
	rx, err := repo.Find(ctx, prescriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find prescription")
	}
	if actor.Role == enums.RoleCustomer && rx.CustomerID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "prescription belongs to another customer")
	}
	if rx.CurrentStatus != enums.PrescriptionStatusSubmitted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "images are editable only while submitted")
	}
	return rx, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, prescriptionID uuid.UUID, status enums.PrescriptionStatus, actor workflow.Actor, notes *string) error {
	change := &models.PrescriptionStatusChange{
		ID:             uuid.New(),
		PrescriptionID: prescriptionID,
		Status:         status,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		ActorName:      actor.Name,
		Notes:          notes,
	}
	if err := repo.AppendHistory(ctx, change); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func (s *service) nextPrescriptionNumber(ctx context.Context) (string, error) {
	seq, err := s.seq.NextSequence(ctx, prescriptionSequence)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RX%d%06d", s.now().Year(), seq%1000000), nil
}

func (s *service) baseDurations() workflow.BaseDurations {
	return workflow.BaseDurations{
		Reviewing: s.cfg.ReviewBaseDuration,
		Suspended: s.cfg.SuspendedBaseDuration,
	}
}

func normalizePage(params ListParams) (int, int) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
