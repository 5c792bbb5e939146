package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Icecubesaad/cura-backend/api/controllers"
	"github.com/Icecubesaad/cura-backend/api/middleware"
	"github.com/Icecubesaad/cura-backend/internal/credits"
	"github.com/Icecubesaad/cura-backend/internal/orders"
	"github.com/Icecubesaad/cura-backend/internal/prescriptions"
	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db"
	"github.com/Icecubesaad/cura-backend/pkg/enums"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
	"github.com/Icecubesaad/cura-backend/pkg/metrics"
	"github.com/Icecubesaad/cura-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	workflowMetrics *metrics.WorkflowMetrics,
	metricsGatherer prometheus.Gatherer,
	prescriptionService prescriptions.Service,
	orderService orders.Service,
	creditService credits.Service,
) http.Handler {
	var cachePinger redis.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, workflowMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cachePinger, logg))
	})

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(cfg.RateLimit, redisClient, logg))
		}

		r.Route("/prescriptions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
				r.Post("/", controllers.PrescriptionSubmit(prescriptionService, logg))
				r.Get("/mine", controllers.PrescriptionsMine(prescriptionService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RolePrescriptionReader, enums.RolePharmacy, enums.RoleAdmin))
				r.Get("/queue", controllers.PrescriptionQueue(prescriptionService, logg))
				r.Get("/assigned", controllers.PrescriptionsAssigned(prescriptionService, logg))
				r.Post("/{prescriptionID}/claim", controllers.PrescriptionClaim(prescriptionService, logg))
				r.Put("/{prescriptionID}/annotation", controllers.PrescriptionAnnotate(prescriptionService, logg))
			})

			r.Get("/{prescriptionID}", controllers.PrescriptionGet(prescriptionService, logg))
			r.Post("/{prescriptionID}/cancel", controllers.PrescriptionCancel(prescriptionService, logg))
			r.Post("/{prescriptionID}/resubmit", controllers.PrescriptionResubmit(prescriptionService, logg))
			r.Post("/{prescriptionID}/images", controllers.PrescriptionAddImages(prescriptionService, logg))
			r.Delete("/{prescriptionID}/images/{imageID}", controllers.PrescriptionRemoveImage(prescriptionService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
				r.Post("/", controllers.OrderCreate(orderService, logg))
				r.Get("/mine", controllers.OrdersMine(orderService, logg))
				r.Post("/{orderID}/returns", controllers.OrderReturnRequest(orderService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleCustomer, enums.RoleAdmin))
				r.Post("/{orderID}/confirm-payment", controllers.OrderConfirmPayment(orderService, logg))
			})

			r.Get("/{orderID}", controllers.OrderGet(orderService, logg))
			r.Post("/{orderID}/cancel", controllers.OrderCancel(orderService, logg))
		})

		r.Route("/sub-orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RolePharmacy, enums.RoleVendor, enums.RoleAdmin))
			r.Get("/", controllers.FulfillerSubOrders(orderService, logg))
			r.Patch("/{subOrderID}/status", controllers.SubOrderAdvance(orderService, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/", controllers.ReturnsList(orderService, logg))
			r.Post("/{requestID}/process", controllers.ReturnProcess(orderService, logg))
		})

		r.Route("/credits", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleCustomer))
				r.Get("/balance", controllers.CreditBalance(creditService, logg))
				r.Get("/history", controllers.CreditHistory(creditService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Post("/grant", controllers.CreditGrant(creditService, logg))
			})
		})
	})

	return r
}
