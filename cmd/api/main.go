package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Icecubesaad/cura-backend/api/routes"
	"github.com/Icecubesaad/cura-backend/internal/credits"
	"github.com/Icecubesaad/cura-backend/internal/inventory"
	"github.com/Icecubesaad/cura-backend/internal/notifications"
	"github.com/Icecubesaad/cura-backend/internal/orders"
	"github.com/Icecubesaad/cura-backend/internal/prescriptions"
	"github.com/Icecubesaad/cura-backend/pkg/config"
	"github.com/Icecubesaad/cura-backend/pkg/db"
	"github.com/Icecubesaad/cura-backend/pkg/logger"
	"github.com/Icecubesaad/cura-backend/pkg/metrics"
	"github.com/Icecubesaad/cura-backend/pkg/migrate"
	"github.com/Icecubesaad/cura-backend/pkg/pubsub"
	"github.com/Icecubesaad/cura-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	registry := prometheus.NewRegistry()
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	notifier, err := notifications.NewPubSubNotifier(pubsubClient.NotificationPublisher(), logg, workflowMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	creditService, err := credits.NewService(credits.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create credit service", err)
		os.Exit(1)
	}

	prescriptionRepo := prescriptions.NewRepository(dbClient.DB())
	prescriptionService, err := prescriptions.NewService(
		prescriptionRepo,
		dbClient,
		redisClient,
		notifier,
		workflowMetrics,
		cfg.Workflow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create prescription service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		inventory.NewRepository(dbClient.DB()),
		prescriptionRepo,
		creditService,
		dbClient,
		redisClient,
		notifier,
		workflowMetrics,
		cfg.Workflow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			workflowMetrics,
			registry,
			prescriptionService,
			orderService,
			creditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
