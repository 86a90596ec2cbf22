package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wheelworks/shopfloor-backend/api/routes"
	"github.com/wheelworks/shopfloor-backend/internal/bulk"
	"github.com/wheelworks/shopfloor-backend/internal/orders"
	"github.com/wheelworks/shopfloor-backend/internal/payments"
	"github.com/wheelworks/shopfloor-backend/internal/pipeline"
	"github.com/wheelworks/shopfloor-backend/internal/queues"
	"github.com/wheelworks/shopfloor-backend/internal/views"
	"github.com/wheelworks/shopfloor-backend/pkg/config"
	"github.com/wheelworks/shopfloor-backend/pkg/db"
	"github.com/wheelworks/shopfloor-backend/pkg/instance"
	"github.com/wheelworks/shopfloor-backend/pkg/logger"
	"github.com/wheelworks/shopfloor-backend/pkg/metrics"
	"github.com/wheelworks/shopfloor-backend/pkg/migrate"
	"github.com/wheelworks/shopfloor-backend/pkg/outbox"
	"github.com/wheelworks/shopfloor-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	pipelineService, err := pipeline.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline service", err)
		os.Exit(1)
	}
	queuesService, err := queues.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create queues service", err)
		os.Exit(1)
	}
	paymentsService, err := payments.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	viewsService, err := views.NewService(views.NewRepository(dbClient.DB()), redisClient, cfg.Views.BadgeCountTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create views service", err)
		os.Exit(1)
	}
	bulkMetrics := metrics.NewBulkOperationMetrics(prometheus.DefaultRegisterer)
	bulkCoordinator, err := bulk.NewCoordinator(pipelineService, ordersService, cfg.Bulk.Workers, bulkMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create bulk coordinator", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Orders:   ordersService,
			Pipeline: pipelineService,
			Queues:   queuesService,
			Payments: paymentsService,
			Views:    viewsService,
			Bulk:     bulkCoordinator,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
