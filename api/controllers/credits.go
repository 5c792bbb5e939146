package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Icecubesaad/cura-backend/api/middleware"
	"github.com/Icecubesaad/cura-backend/api/responses"
	"github.com/Icecubesaad/cura-backend/api/validators"
	creditsvc "github.com/Icecubesaad/cura-backend/internal/credits"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
)

// CreditBalance returns the calling customer's current credit balance.
func CreditBalance(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := middleware.UserIDFromContext(r.Context())
		balance, err := svc.Balance(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"balance_cents": balance})
	}
}

// CreditHistory lists the calling customer's ledger entries, newest first.
func CreditHistory(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), creditsvc.HistoryParams{
			CustomerID: middleware.UserIDFromContext(r.Context()),
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]creditEntryResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, newCreditEntryResponse(entry))
		}
		responses.WriteSuccess(w, out)
	}
}

// CreditGrant lets an admin award bonus credits to a customer.
func CreditGrant(svc creditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload grantCreditsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Bonus(r.Context(), creditsvc.EntryInput{
			CustomerID:  payload.CustomerID,
			AmountCents: payload.AmountCents,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCreditEntryResponse(*entry))
	}
}

type grantCreditsRequest struct {
	CustomerID  uuid.UUID `json:"customer_id" validate:"required"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	Description string    `json:"description" validate:"required,min=3,max=500"`
}

type creditEntryResponse struct {
	ID                uuid.UUID  `json:"id"`
	Type              string     `json:"type"`
	AmountCents       int64      `json:"amount_cents"`
	Description       string     `json:"description"`
	OrderID           *uuid.UUID `json:"order_id,omitempty"`
	BalanceAfterCents int64      `json:"balance_after_cents"`
	CreatedAt         time.Time  `json:"created_at"`
}

func newCreditEntryResponse(entry models.CreditEntry) creditEntryResponse {
	return creditEntryResponse{
		ID:                entry.ID,
		Type:              string(entry.Type),
		AmountCents:       entry.AmountCents,
		Description:       entry.Description,
		OrderID:           entry.OrderID,
		BalanceAfterCents: entry.BalanceAfterCents,
		CreatedAt:         entry.CreatedAt,
	}
}
