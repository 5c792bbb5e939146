package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Icecubesaad/cura-backend/internal/credits"
	"github.com/Icecubesaad/cura-backend/internal/orders"
	"github.com/Icecubesaad/cura-backend/internal/prescriptions"
	"github.com/Icecubesaad/cura-backend/internal/workflow"
	pkgAuth "github.com/Icecubesaad/cura-backend/pkg/auth"
	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db/models"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPrescriptionService struct{}

func (stubPrescriptionService) Submit(ctx context.Context, input prescriptions.SubmitInput) (*models.Prescription, error) {
	return &models.Prescription{ID: uuid.New(), CustomerID: input.CustomerID}, nil
}

func (stubPrescriptionService) Claim(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error {
	return nil
}

func (stubPrescriptionService) Annotate(ctx context.Context, input prescriptions.AnnotateInput) error {
	return nil
}

func (stubPrescriptionService) Cancel(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, reason string) error {
	return nil
}

func (stubPrescriptionService) Resubmit(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) error {
	return nil
}

func (stubPrescriptionService) AddImages(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor, images []prescriptions.ImageInput) error {
	return nil
}

func (stubPrescriptionService) RemoveImage(ctx context.Context, prescriptionID, imageID uuid.UUID, actor workflow.Actor) error {
	return nil
}

func (stubPrescriptionService) Get(ctx context.Context, prescriptionID uuid.UUID, actor workflow.Actor) (*models.Prescription, error) {
	return &models.Prescription{ID: prescriptionID}, nil
}

func (stubPrescriptionService) Queue(ctx context.Context, params prescriptions.ListParams) ([]models.Prescription, error) {
	return nil, nil
}

func (stubPrescriptionService) ListByCustomer(ctx context.Context, customerID uuid.UUID, params prescriptions.ListParams) ([]models.Prescription, error) {
	return nil, nil
}

func (stubPrescriptionService) ListAssigned(ctx context.Context, readerID uuid.UUID, params prescriptions.ListParams) ([]models.Prescription, error) {
	return nil, nil
}

type stubOrderService struct{}

func (stubOrderService) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), CustomerID: input.CustomerID}, nil
}

func (stubOrderService) ConfirmPayment(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) error {
	return nil
}

func (stubOrderService) AdvanceSubOrderStatus(ctx context.Context, subOrderID uuid.UUID, target enums.OrderStatus, actor workflow.Actor) error {
	return nil
}

func (stubOrderService) Cancel(ctx context.Context, orderID uuid.UUID, actor workflow.Actor, reason string) error {
	return nil
}

func (stubOrderService) RequestReturn(ctx context.Context, input orders.ReturnInput) (*models.ReturnRequest, error) {
	return &models.ReturnRequest{ID: uuid.New(), OrderID: input.OrderID}, nil
}

func (stubOrderService) ProcessReturn(ctx context.Context, input orders.ProcessReturnInput) error {
	return nil
}

func (stubOrderService) ListReturnRequests(ctx context.Context, actor workflow.Actor, params orders.ReturnListParams) ([]models.ReturnRequest, error) {
	return nil, nil
}

func (stubOrderService) Get(ctx context.Context, orderID uuid.UUID, actor workflow.Actor) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID, params orders.ListParams) ([]models.Order, error) {
	return nil, nil
}

func (stubOrderService) ListSubOrdersByFulfiller(ctx context.Context, fulfillerID uuid.UUID, params orders.ListParams) ([]models.SubOrder, error) {
	return nil, nil
}

type stubCreditService struct{}

func (s stubCreditService) WithTx(tx *gorm.DB) credits.Service {
	return s
}

func (stubCreditService) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return 1500, nil
}

func (stubCreditService) History(ctx context.Context, params credits.HistoryParams) ([]models.CreditEntry, error) {
	return nil, nil
}

func (stubCreditService) Earn(ctx context.Context, input credits.EntryInput) (*models.CreditEntry, error) {
	return nil, nil
}

func (stubCreditService) Use(ctx context.Context, input credits.EntryInput) (*models.CreditEntry, error) {
	return nil, nil
}

func (stubCreditService) Refund(ctx context.Context, input credits.EntryInput) (*models.CreditEntry, error) {
	return nil, nil
}

func (stubCreditService) Bonus(ctx context.Context, input credits.EntryInput) (*models.CreditEntry, error) {
	return &models.CreditEntry{ID: uuid.New(), CustomerID: input.CustomerID, AmountCents: input.AmountCents}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis client: rate limiting disabled
		nil, // metrics
		nil, // gatherer
		stubPrescriptionService{},
		stubOrderService{},
		stubCreditService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		Name:   "tester",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyWithStubDependencies(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCreditRoutesRequireCustomerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	pharmacy := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
	pharmacy.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RolePharmacy))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, pharmacy)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for pharmacy got %d", resp.Code)
	}

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer got %d", resp.Code)
	}
}

func TestQueueRequiresReviewerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/queue", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	reader := httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/queue", nil)
	reader.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RolePrescriptionReader))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, reader)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for reader got %d", resp.Code)
	}
}

func TestReturnProcessingRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	vendor := httptest.NewRequest(http.MethodPost, "/api/v1/returns/"+uuid.NewString()+"/process", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleVendor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

func TestConfirmPaymentAllowsCustomerAndAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	target := "/api/v1/orders/" + uuid.NewString() + "/confirm-payment"

	for _, role := range []enums.Role{enums.RoleCustomer, enums.RoleAdmin} {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", role, resp.Code)
		}
	}

	vendor := httptest.NewRequest(http.MethodPost, target, nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleVendor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}
}

func TestCreditGrantRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"customer_id":"` + uuid.NewString() + `","amount_cents":500,"description":"goodwill credit"}`

	customer := httptest.NewRequest(http.MethodPost, "/api/v1/credits/grant", strings.NewReader(body))
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/credits/grant", strings.NewReader(body))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin got %d", resp.Code)
	}
}

func TestSubOrderRoutesRejectCustomers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/sub-orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	pharmacy := httptest.NewRequest(http.MethodGet, "/api/v1/sub-orders", nil)
	pharmacy.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RolePharmacy))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, pharmacy)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for pharmacy got %d", resp.Code)
	}
}
