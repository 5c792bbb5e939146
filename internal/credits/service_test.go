package credits

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	pkgerrors "github.com/Icecubesaad/cura-backend/pkg/errors"
)

type fakeRepository struct {
	customers map[uuid.UUID]*models.Customer
	entries   []models.CreditEntry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{customers: map[uuid.UUID]*models.Customer{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindCustomer(_ context.Context, customerID uuid.UUID) (*models.Customer, error) {
	customer, ok := f.customers[customerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *customer
	return &clone, nil
}

func (f *fakeRepository) CreateEntry(_ context.Context, entry *models.CreditEntry) error {
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepository) ListEntries(_ context.Context, customerID uuid.UUID, limit, offset int) ([]models.CreditEntry, error) {
	var out []models.CreditEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].CustomerID == customerID {
			out = append(out, f.entries[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepository) AddBalance(_ context.Context, customerID uuid.UUID, deltaCents int64) (bool, error) {
	customer, ok := f.customers[customerID]
	if !ok {
		return false, nil
	}
	customer.CreditsCents += deltaCents
	return true, nil
}

func (f *fakeRepository) DeductBalance(_ context.Context, customerID uuid.UUID, amountCents int64) (bool, error) {
	customer, ok := f.customers[customerID]
	if !ok || customer.CreditsCents < amountCents {
		return false, nil
	}
	customer.CreditsCents -= amountCents
	return true, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type failingTxRunner struct{}

func (failingTxRunner) WithTx(context.Context, func(tx *gorm.DB) error) error {
	return fmt.Errorf("outer transaction runner must not open a transaction")
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func seedCustomer(repo *fakeRepository, balance int64) uuid.UUID {
	id := uuid.New()
	repo.customers[id] = &models.Customer{ID: id, Name: "Customer", Phone: "+20100", CreditsCents: balance}
	return id
}

func TestService_EarnAppendsEntryAndMovesBalance(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 500)
	orderID := uuid.New()

	entry, err := svc.Earn(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 250,
		Description: "earned from order",
		OrderID:     &orderID,
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if entry.Type != enums.CreditEntryTypeEarned {
		t.Fatalf("unexpected entry type %s", entry.Type)
	}
	if entry.AmountCents != 250 {
		t.Fatalf("expected positive amount 250, got %d", entry.AmountCents)
	}
	if entry.BalanceAfterCents != 750 {
		t.Fatalf("expected balance after 750, got %d", entry.BalanceAfterCents)
	}
	if repo.customers[customerID].CreditsCents != 750 {
		t.Fatalf("balance not persisted: %d", repo.customers[customerID].CreditsCents)
	}
	if entry.OrderID == nil || *entry.OrderID != orderID {
		t.Fatal("order reference not preserved")
	}
}

func TestService_UseRecordsNegativeAmount(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 1000)

	entry, err := svc.Use(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 400,
		Description: "used on order",
	})
	if err != nil {
		t.Fatalf("Use error: %v", err)
	}
	if entry.AmountCents != -400 {
		t.Fatalf("expected signed amount -400, got %d", entry.AmountCents)
	}
	if entry.BalanceAfterCents != 600 {
		t.Fatalf("expected balance after 600, got %d", entry.BalanceAfterCents)
	}
}

func TestService_UseRejectsOverdraft(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 300)

	_, err := svc.Use(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 301,
		Description: "too much",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientCredits) {
		t.Fatalf("expected insufficient credits error, got %v", err)
	}
	if repo.customers[customerID].CreditsCents != 300 {
		t.Fatalf("balance should be untouched, got %d", repo.customers[customerID].CreditsCents)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("no entry should be written, got %d", len(repo.entries))
	}
}

func TestService_RefundAndBonusCredit(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 0)

	refund, err := svc.Refund(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 150,
		Description: "approved return",
	})
	if err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	if refund.Type != enums.CreditEntryTypeRefund || refund.BalanceAfterCents != 150 {
		t.Fatalf("unexpected refund entry: %+v", refund)
	}

	bonus, err := svc.Bonus(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 50,
		Description: "welcome bonus",
	})
	if err != nil {
		t.Fatalf("Bonus error: %v", err)
	}
	if bonus.Type != enums.CreditEntryTypeBonus || bonus.BalanceAfterCents != 200 {
		t.Fatalf("unexpected bonus entry: %+v", bonus)
	}
}

func TestService_BalanceAndHistory(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 100)

	if _, err := svc.Earn(context.Background(), EntryInput{CustomerID: customerID, AmountCents: 10, Description: "a"}); err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if _, err := svc.Earn(context.Background(), EntryInput{CustomerID: customerID, AmountCents: 20, Description: "b"}); err != nil {
		t.Fatalf("Earn error: %v", err)
	}

	balance, err := svc.Balance(context.Background(), customerID)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 130 {
		t.Fatalf("expected balance 130, got %d", balance)
	}

	entries, err := svc.History(context.Background(), HistoryParams{CustomerID: customerID, Limit: 1})
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Description != "b" {
		t.Fatalf("expected newest entry first, got %q", entries[0].Description)
	}
}

func TestService_BalanceUnknownCustomer(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	if _, err := svc.Balance(context.Background(), uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_WithTxJoinsCallerTransaction(t *testing.T) {
	repo := newFakeRepository()
	svc, err := NewService(repo, failingTxRunner{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	customerID := seedCustomer(repo, 0)

	// a bound ledger writes on the caller's transaction, bypassing the runner
	entry, err := svc.WithTx(&gorm.DB{}).Earn(context.Background(), EntryInput{
		CustomerID:  customerID,
		AmountCents: 100,
		Description: "earned inside caller transaction",
	})
	if err != nil {
		t.Fatalf("Earn error: %v", err)
	}
	if entry.BalanceAfterCents != 100 {
		t.Fatalf("expected balance after 100, got %d", entry.BalanceAfterCents)
	}

	if svc.WithTx(nil) != svc {
		t.Fatal("nil tx should return the unbound service")
	}
}

func TestService_EntryValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)
	customerID := seedCustomer(repo, 100)

	tests := []struct {
		name  string
		input EntryInput
	}{
		{"missing customer", EntryInput{AmountCents: 10, Description: "x"}},
		{"zero amount", EntryInput{CustomerID: customerID, Description: "x"}},
		{"negative amount", EntryInput{CustomerID: customerID, AmountCents: -5, Description: "x"}},
		{"missing description", EntryInput{CustomerID: customerID, AmountCents: 10}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Earn(context.Background(), tc.input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, err := svc.Use(context.Background(), tc.input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
