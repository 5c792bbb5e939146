package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the customer credit ledger operations. Entries are
// append-only; the customer's running balance moves in the same transaction
// as the entry that explains it. WithTx binds the ledger to a caller-owned
// transaction so an entry commits or rolls back with the caller's writes.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Balance(ctx context.Context, customerID uuid.UUID) (int64, error)
	History(ctx context.Context, params HistoryParams) ([]models.CreditEntry, error)
	Earn(ctx context.Context, input EntryInput) (*models.CreditEntry, error)
	Use(ctx context.Context, input EntryInput) (*models.CreditEntry, error)
	Refund(ctx context.Context, input EntryInput) (*models.CreditEntry, error)
	Bonus(ctx context.Context, input EntryInput) (*models.CreditEntry, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// EntryInput captures the data a ledger entry requires. AmountCents is always
// positive; the entry type decides the sign applied to the balance.
type EntryInput struct {
	CustomerID  uuid.UUID
	AmountCents int64
	Description string
	OrderID     *uuid.UUID
}

// HistoryParams configures paging for the entry listing.
type HistoryParams struct {
	CustomerID uuid.UUID
	Limit      int
	Offset     int
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// NewService wires a credits service with the provided dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// boundTx runs the ledger write directly on an existing transaction instead
// of opening a new one.
type boundTx struct {
	tx *gorm.DB
}

func (b boundTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(b.tx)
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo, tx: boundTx{tx: tx}}
}

func (s *service) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find customer")
	}
	return customer.CreditsCents, nil
}

func (s *service) History(ctx context.Context, params HistoryParams) ([]models.CreditEntry, error) {
	if params.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.ListEntries(ctx, params.CustomerID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list credit entries")
	}
	return entries, nil
}

func (s *service) Earn(ctx context.Context, input EntryInput) (*models.CreditEntry, error) {
	return s.credit(ctx, enums.CreditEntryTypeEarned, input)
}

func (s *service) Refund(ctx context.Context, input EntryInput) (*models.CreditEntry, error) {
	return s.credit(ctx, enums.CreditEntryTypeRefund, input)
}

func (s *service) Bonus(ctx context.Context, input EntryInput) (*models.CreditEntry, error) {
	return s.credit(ctx, enums.CreditEntryTypeBonus, input)
}

func (s *service) credit(ctx context.Context, entryType enums.CreditEntryType, input EntryInput) (*models.CreditEntry, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	var entry *models.CreditEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.AddBalance(ctx, input.CustomerID, input.AmountCents)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}

		created, err := s.appendEntry(ctx, repo, entryType, input, input.AmountCents)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Use deducts credits. The deduction is guarded against the persisted balance;
// a concurrent spender losing the race gets InsufficientCredits, never a
// negative balance.
func (s *service) Use(ctx context.Context, input EntryInput) (*models.CreditEntry, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	var entry *models.CreditEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindCustomer(ctx, input.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find customer")
		}

		deducted, err := repo.DeductBalance(ctx, input.CustomerID, input.AmountCents)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct balance")
		}
		if !deducted {
			return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "credit balance does not cover amount")
		}

		created, err := s.appendEntry(ctx, repo, enums.CreditEntryTypeUsed, input, -input.AmountCents)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) appendEntry(ctx context.Context, repo Repository, entryType enums.CreditEntryType, input EntryInput, signedAmount int64) (*models.CreditEntry, error) {
	customer, err := repo.FindCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload customer")
	}

	entry := &models.CreditEntry{
		CustomerID:        input.CustomerID,
		Type:              entryType,
		AmountCents:       signedAmount,
		Description:       input.Description,
		OrderID:           input.OrderID,
		BalanceAfterCents: customer.CreditsCents,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create credit entry")
	}
	return entry, nil
}

func validateEntryInput(input EntryInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	return nil
}
