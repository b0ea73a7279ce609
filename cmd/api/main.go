package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bitedash/bitedash-backend/api/routes"
	"github.com/bitedash/bitedash-backend/internal/menu"
	"github.com/bitedash/bitedash-backend/internal/orders"
	"github.com/bitedash/bitedash-backend/internal/pickuptoken"
	"github.com/bitedash/bitedash-backend/internal/revenue"
	"github.com/bitedash/bitedash-backend/internal/settlement"
	"github.com/bitedash/bitedash-backend/internal/wallet"
	"github.com/bitedash/bitedash-backend/pkg/config"
	"github.com/bitedash/bitedash-backend/pkg/db"
	"github.com/bitedash/bitedash-backend/pkg/logger"
	"github.com/bitedash/bitedash-backend/pkg/metrics"
	"github.com/bitedash/bitedash-backend/pkg/migrate"
	"github.com/bitedash/bitedash-backend/pkg/outbox"
	"github.com/bitedash/bitedash-backend/pkg/pubsub"
	"github.com/bitedash/bitedash-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "pubsub not configured, outbox events will queue without a publisher")
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	pickupSvc, err := pickuptoken.NewService(cfg.Pickup)
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup token service", err)
		os.Exit(1)
	}

	menuSvc, err := menu.NewService(menu.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create menu service", err)
		os.Exit(1)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	revenueSvc, err := revenue.NewService(revenue.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create revenue service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, pickupSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(
		menuSvc,
		walletSvc,
		revenueSvc,
		ordersRepo,
		dbClient,
		outboxSvc,
		pickupSvc,
		logg,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		cfg.Settlement,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	deps := routes.Deps{
		Config:           cfg,
		Logg:             logg,
		DBPinger:         dbClient,
		RedisPinger:      redisClient,
		IdempotencyStore: redisClient,
		Settlement:       settlementSvc,
		Orders:           ordersSvc,
		Wallet:           walletSvc,
		Revenue:          revenueSvc,
		Menu:             menuSvc,
	}
	if pubsubClient != nil {
		deps.PubSubPinger = pubsubClient
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
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
