package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/masumbillah21/conditional-discount/api/routes"
	"github.com/masumbillah21/conditional-discount/internal/collections"
	"github.com/masumbillah21/conditional-discount/internal/evaluate"
	"github.com/masumbillah21/conditional-discount/internal/rules"
	"github.com/masumbillah21/conditional-discount/internal/shopify"
	"github.com/masumbillah21/conditional-discount/pkg/config"
	"github.com/masumbillah21/conditional-discount/pkg/db"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
	"github.com/masumbillah21/conditional-discount/pkg/metrics"
	"github.com/masumbillah21/conditional-discount/pkg/migrate"
	"github.com/masumbillah21/conditional-discount/pkg/redis"
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

	shopifyClient, err := shopify.New(cfg.Shopify, cfg.Collections, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shopify client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	evaluationMetrics := metrics.NewEvaluationMetrics(registry)

	rulesRepo := rules.NewRepository(dbClient.DB())
	rulesService, err := rules.NewService(rulesRepo, shopifyClient, evaluationMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create rules service", err)
		os.Exit(1)
	}

	resolver, err := collections.NewCachedResolver(redisClient, shopifyClient, cfg.Collections.CacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create collection resolver", err)
		os.Exit(1)
	}

	evaluateService, err := evaluate.NewService(rulesRepo, resolver, evaluationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create evaluation service", err)
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
			registry,
			rulesService,
			evaluateService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
