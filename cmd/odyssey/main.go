package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-pos/internal/app"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/register"
	"github.com/odyssey-erp/odyssey-pos/internal/store"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI, err := cli.NewJobsCLI(cfg.Redis())
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		defer jobsCLI.Close()
		if err := jobsCLI.Run(ctx, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	var records store.RecordStore = store.NewMemory()
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{ApplicationName: "odyssey"})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		records = store.NewPostgres(pool)
	} else {
		logger.Warn("PG_DSN empty, records are kept in memory")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, register sessions are kept in memory", slog.Any("error", err))
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	var source catalog.Source = catalog.NewSeedSource()
	if cfg.CatalogSource == app.CatalogStore {
		source = catalog.NewRepository(records)
	}

	registryCfg := register.RegistryConfig{
		Catalog:             source,
		Resolver:            register.IDResolver{},
		Observer:            metrics,
		Logger:              logger,
		RestoreStockOnClear: cfg.RegisterRestoreStockOnClear,
	}

	var inspector *asynq.Inspector
	if redisClient != nil {
		registryCfg.Stores = func(registerID string) register.SessionStore {
			return register.NewRedisStore(redisClient, cfg.RegisterKeyPrefix, registerID, cfg.RegisterSessionTTL)
		}

		redisOpts := cfg.Redis().AsynqOpt()
		jobClient := jobs.NewClient(redisOpts, logger)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		registryCfg.Recorder = jobClient

		inspector = asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
	} else {
		logger.Warn("sale recording disabled without redis")
	}

	rbacService := rbac.NewService(records, rbac.Options{Logger: logger, DemoFallback: cfg.RBACDemoFallback})
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Enforce: cfg.RBACEnforce}

	registry := register.NewRegistry(registryCfg)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		RegisterHandler: register.NewHandler(logger, registry, rbacMiddleware),
		RBACHandler:     rbac.NewHandler(logger, rbacService, rbacMiddleware),
		RBACMiddleware:  rbacMiddleware,
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("catalog", cfg.CatalogSource),
			slog.Bool("rbac_enforce", cfg.RBACEnforce),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", slog.Any("registers", registry.IDs()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
