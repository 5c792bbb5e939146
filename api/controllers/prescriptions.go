package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/api/middleware"
	"github.com/Icecubesaad/cura-backend/api/responses"
	"github.com/Icecubesaad/cura-backend/api/validators"
	rxsvc "github.com/Icecubesaad/cura-backend/internal/prescriptions"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
)

// PrescriptionSubmit handles a customer uploading a new prescription.
func PrescriptionSubmit(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prescription service unavailable"))
			return
		}

		var payload submitPrescriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		urgency, err := enums.ParseUrgency(payload.Urgency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency"))
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		input := rxsvc.SubmitInput{
			CustomerID:     actor.ID,
			CustomerName:   actor.Name,
			CustomerPhone:  middleware.UserPhoneFromContext(r.Context()),
			PatientName:    payload.PatientName,
			PatientAge:     payload.PatientAge,
			DoctorName:     payload.DoctorName,
			HospitalClinic: payload.HospitalClinic,
			Urgency:        urgency,
			Images:         toImageInputs(payload.Images),
		}

		record, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPrescriptionResponse(record))
	}
}

// PrescriptionClaim assigns the prescription to the calling reviewer.
func PrescriptionClaim(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.Claim(r.Context(), prescriptionID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), prescriptionID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPrescriptionResponse(record))
	}
}

// PrescriptionAnnotate records the reviewer's decision and medicine lines.
func PrescriptionAnnotate(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload annotatePrescriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decision, err := enums.ParsePrescriptionStatus(payload.Decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decision"))
			return
		}

		input := rxsvc.AnnotateInput{
			PrescriptionID:  prescriptionID,
			Actor:           middleware.ActorFromContext(r.Context()),
			Decision:        decision,
			Medicines:       toMedicineInputs(payload.Medicines),
			Notes:           payload.Notes,
			RejectionReason: payload.RejectionReason,
		}

		if err := svc.Annotate(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(decision)})
	}
}

// PrescriptionCancel lets the owning customer withdraw a prescription.
func PrescriptionCancel(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.Cancel(r.Context(), prescriptionID, actor, payload.Reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.PrescriptionStatusCancelled)})
	}
}

// PrescriptionResubmit puts a rejected prescription back in the queue.
func PrescriptionResubmit(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.Resubmit(r.Context(), prescriptionID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.PrescriptionStatusSubmitted)})
	}
}

// PrescriptionAddImages appends images to a prescription still awaiting review.
func PrescriptionAddImages(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addImagesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.AddImages(r.Context(), prescriptionID, actor, toImageInputs(payload.Images)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"added": len(payload.Images)})
	}
}

// PrescriptionRemoveImage removes one image from a prescription awaiting review.
func PrescriptionRemoveImage(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParseUUIDParam(chi.URLParam(r, "imageID"), "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if err := svc.RemoveImage(r.Context(), prescriptionID, imageID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"removed": imageID.String()})
	}
}

// PrescriptionGet returns one prescription with its images, medicines and history.
func PrescriptionGet(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prescriptionID, err := validators.ParseUUIDParam(chi.URLParam(r, "prescriptionID"), "prescriptionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), prescriptionID, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPrescriptionResponse(record))
	}
}

// PrescriptionQueue lists prescriptions by status for reviewers, oldest first.
func PrescriptionQueue(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := prescriptionListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.Queue(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPrescriptionListResponse(records))
	}
}

// PrescriptionsMine lists the calling customer's prescriptions.
func PrescriptionsMine(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := prescriptionListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID := middleware.UserIDFromContext(r.Context())
		records, err := svc.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPrescriptionListResponse(records))
	}
}

// PrescriptionsAssigned lists prescriptions claimed by the calling reviewer.
func PrescriptionsAssigned(svc rxsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := prescriptionListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		readerID := middleware.UserIDFromContext(r.Context())
		records, err := svc.ListAssigned(r.Context(), readerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPrescriptionListResponse(records))
	}
}

func prescriptionListParams(r *http.Request) (rxsvc.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return rxsvc.ListParams{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return rxsvc.ListParams{}, err
	}

	params := rxsvc.ListParams{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := enums.ParsePrescriptionStatus(raw)
		if err != nil {
			return rxsvc.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = status
	}
	return params, nil
}

type submitPrescriptionRequest struct {
	PatientName    string         `json:"patient_name" validate:"required"`
	PatientAge     *int           `json:"patient_age,omitempty"`
	DoctorName     *string        `json:"doctor_name,omitempty"`
	HospitalClinic *string        `json:"hospital_clinic,omitempty"`
	Urgency        string         `json:"urgency" validate:"required"`
	Images         []imagePayload `json:"images" validate:"required,min=1,dive"`
}

type imagePayload struct {
	URL          string `json:"url" validate:"required"`
	StorageID    string `json:"storage_id" validate:"required"`
	OriginalName string `json:"original_name"`
}

type addImagesRequest struct {
	Images []imagePayload `json:"images" validate:"required,min=1,dive"`
}

type annotatePrescriptionRequest struct {
	Decision        string             `json:"decision" validate:"required"`
	Medicines       []medicinePayload  `json:"medicines" validate:"dive"`
	Notes           *string            `json:"notes,omitempty"`
	RejectionReason *string            `json:"rejection_reason,omitempty"`
}

type medicinePayload struct {
	ProductID      *uuid.UUID           `json:"product_id,omitempty"`
	ProductName    string               `json:"product_name" validate:"required"`
	Quantity       int                  `json:"quantity" validate:"required,min=1"`
	Dosage         *string              `json:"dosage,omitempty"`
	Instructions   *string              `json:"instructions,omitempty"`
	UnitPriceCents int64                `json:"unit_price_cents" validate:"min=0"`
	PharmacyID     *uuid.UUID           `json:"pharmacy_id,omitempty"`
	IsAvailable    bool                 `json:"is_available"`
	Alternatives   []alternativePayload `json:"alternatives,omitempty" validate:"dive"`
}

type alternativePayload struct {
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name" validate:"required"`
	UnitPriceCents int64      `json:"unit_price_cents" validate:"min=0"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func toImageInputs(payloads []imagePayload) []rxsvc.ImageInput {
	images := make([]rxsvc.ImageInput, len(payloads))
	for i, payload := range payloads {
		images[i] = rxsvc.ImageInput{
			URL:          payload.URL,
			StorageID:    payload.StorageID,
			OriginalName: payload.OriginalName,
		}
	}
	return images
}

func toMedicineInputs(payloads []medicinePayload) []rxsvc.MedicineInput {
	medicines := make([]rxsvc.MedicineInput, len(payloads))
	for i, payload := range payloads {
		alternatives := make([]rxsvc.AlternativeInput, len(payload.Alternatives))
		for j, alt := range payload.Alternatives {
			alternatives[j] = rxsvc.AlternativeInput{
				ProductID:      alt.ProductID,
				ProductName:    alt.ProductName,
				UnitPriceCents: alt.UnitPriceCents,
			}
		}
		medicines[i] = rxsvc.MedicineInput{
			ProductID:      payload.ProductID,
			ProductName:    payload.ProductName,
			Quantity:       payload.Quantity,
			Dosage:         payload.Dosage,
			Instructions:   payload.Instructions,
			UnitPriceCents: payload.UnitPriceCents,
			PharmacyID:     payload.PharmacyID,
			IsAvailable:    payload.IsAvailable,
			Alternatives:   alternatives,
		}
	}
	return medicines
}

type prescriptionResponse struct {
	ID                  uuid.UUID                      `json:"id"`
	PrescriptionNumber  string                         `json:"prescription_number"`
	CustomerID          uuid.UUID                      `json:"customer_id"`
	CustomerName        string                         `json:"customer_name"`
	PatientName         string                         `json:"patient_name"`
	PatientAge          *int                           `json:"patient_age,omitempty"`
	DoctorName          *string                        `json:"doctor_name,omitempty"`
	HospitalClinic      *string                        `json:"hospital_clinic,omitempty"`
	Urgency             string                         `json:"urgency"`
	Status              string                         `json:"status"`
	AssignedReaderID    *uuid.UUID                     `json:"assigned_reader_id,omitempty"`
	RejectionReason     *string                        `json:"rejection_reason,omitempty"`
	ReaderNotes         *string                        `json:"reader_notes,omitempty"`
	EstimatedCompletion *time.Time                     `json:"estimated_completion,omitempty"`
	OrderCreated        bool                           `json:"order_created"`
	OrderID             *uuid.UUID                     `json:"order_id,omitempty"`
	Images              []prescriptionImageResponse    `json:"images"`
	Medicines           []processedMedicineResponse    `json:"medicines"`
	StatusHistory       []statusChangeResponse         `json:"status_history,omitempty"`
	CreatedAt           time.Time                      `json:"created_at"`
	UpdatedAt           time.Time                      `json:"updated_at"`
}

type prescriptionImageResponse struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	OriginalName string    `json:"original_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type processedMedicineResponse struct {
	ID             uuid.UUID             `json:"id"`
	ProductID      *uuid.UUID            `json:"product_id,omitempty"`
	ProductName    string                `json:"product_name"`
	Quantity       int                   `json:"quantity"`
	Dosage         *string               `json:"dosage,omitempty"`
	Instructions   *string               `json:"instructions,omitempty"`
	UnitPriceCents int64                 `json:"unit_price_cents"`
	PharmacyID     *uuid.UUID            `json:"pharmacy_id,omitempty"`
	IsAvailable    bool                  `json:"is_available"`
	Alternatives   []alternativeResponse `json:"alternatives,omitempty"`
}

type alternativeResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name"`
	UnitPriceCents int64      `json:"unit_price_cents"`
}

type statusChangeResponse struct {
	Status    string    `json:"status"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	ActorName string    `json:"actor_name"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newPrescriptionResponse(record *models.Prescription) prescriptionResponse {
	images := make([]prescriptionImageResponse, 0, len(record.Images))
	for _, image := range record.Images {
		images = append(images, prescriptionImageResponse{
			ID:           image.ID,
			URL:          image.URL,
			OriginalName: image.OriginalName,
			CreatedAt:    image.CreatedAt,
		})
	}

	medicines := make([]processedMedicineResponse, 0, len(record.ProcessedMedicines))
	for _, medicine := range record.ProcessedMedicines {
		alternatives := make([]alternativeResponse, 0, len(medicine.Alternatives))
		for _, alt := range medicine.Alternatives {
			alternatives = append(alternatives, alternativeResponse{
				ID:             alt.ID,
				ProductID:      alt.ProductID,
				ProductName:    alt.ProductName,
				UnitPriceCents: alt.UnitPriceCents,
			})
		}
		medicines = append(medicines, processedMedicineResponse{
			ID:             medicine.ID,
			ProductID:      medicine.ProductID,
			ProductName:    medicine.ProductName,
			Quantity:       medicine.Quantity,
			Dosage:         medicine.Dosage,
			Instructions:   medicine.Instructions,
			UnitPriceCents: medicine.UnitPriceCents,
			PharmacyID:     medicine.PharmacyID,
			IsAvailable:    medicine.IsAvailable,
			Alternatives:   alternatives,
		})
	}

	history := make([]statusChangeResponse, 0, len(record.StatusHistory))
	for _, change := range record.StatusHistory {
		history = append(history, statusChangeResponse{
			Status:    string(change.Status),
			ActorID:   change.ActorID,
			ActorRole: string(change.ActorRole),
			ActorName: change.ActorName,
			Notes:     change.Notes,
			CreatedAt: change.CreatedAt,
		})
	}

	return prescriptionResponse{
		ID:                  record.ID,
		PrescriptionNumber:  record.PrescriptionNumber,
		CustomerID:          record.CustomerID,
		CustomerName:        record.CustomerName,
		PatientName:         record.PatientName,
		PatientAge:          record.PatientAge,
		DoctorName:          record.DoctorName,
		HospitalClinic:      record.HospitalClinic,
		Urgency:             string(record.Urgency),
		Status:              string(record.CurrentStatus),
		AssignedReaderID:    record.AssignedReaderID,
		RejectionReason:     record.RejectionReason,
		ReaderNotes:         record.ReaderNotes,
		EstimatedCompletion: record.EstimatedCompletion,
		OrderCreated:        record.OrderCreated,
		OrderID:             record.OrderID,
		Images:              images,
		Medicines:           medicines,
		StatusHistory:       history,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
}

func newPrescriptionListResponse(records []models.Prescription) []prescriptionResponse {
	out := make([]prescriptionResponse, 0, len(records))
	for i := range records {
		out = append(out, newPrescriptionResponse(&records[i]))
	}
	return out
}
