package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/multierr"

	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/api/routes"
	"github.com/angelmondragon/orderdesk-backend/internal/ledger"
	"github.com/angelmondragon/orderdesk-backend/internal/orderform"
	"github.com/angelmondragon/orderdesk-backend/internal/refdata"
	"github.com/angelmondragon/orderdesk-backend/internal/settlement"
	"github.com/angelmondragon/orderdesk-backend/internal/submissions"
	"github.com/angelmondragon/orderdesk-backend/pkg/backend"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/db"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/lock"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/migrate"
	"github.com/angelmondragon/orderdesk-backend/pkg/outbox"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
	"github.com/angelmondragon/orderdesk-backend/pkg/tracing"
)

const serviceName = "api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "orderdesk-"+serviceName, cfg.App.Env, cfg.Tracing)
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Combine(err, redisClient.Close(), dbClient.Close(), shutdownTracing(flushCtx))
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deskMetrics := metrics.NewOrderDeskMetrics(reg)

	deps, err := wire(cfg, logg, dbClient, redisClient, deskMetrics)
	if err != nil {
		return err
	}
	deps.Metrics = reg

	addr := net.JoinHostPort("", serverPort(cfg))
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID(),
	})
	logg.Info(ctx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func wire(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, deskMetrics *metrics.OrderDeskMetrics) (routes.Dependencies, error) {
	backendClient, err := backend.New(cfg.Backend, backend.WithObserver(deskMetrics), backend.WithLogger(logg))
	if err != nil {
		return routes.Dependencies{}, err
	}

	refs, err := refdata.NewService(backendClient, redisClient, cfg.Forms.RefDataCacheTTL, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	var drafts orderform.DraftStore
	if cfg.FeatureFlags.UsesDBDrafts() {
		drafts, err = orderform.NewDBDraftStore(dbClient.DB(), cfg.Forms.DraftTTL)
	} else {
		drafts, err = orderform.NewRedisDraftStore(redisClient, cfg.Forms.DraftTTL)
	}
	if err != nil {
		return routes.Dependencies{}, err
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	forms, err := orderform.NewService(orderform.ServiceParams{
		References:    refs,
		Drafts:        drafts,
		Orders:        backendClient,
		Submissions:   submissions.NewRepository(gormDB),
		Locker:        lock.New(redisClient.Raw()),
		LockKeys:      redisClient,
		Tx:            dbClient,
		Outbox:        outboxSvc,
		Metrics:       deskMetrics,
		SubmitLockTTL: cfg.Forms.SubmitLockTTL,
		Logger:        logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	priority, err := enums.ParseSettlementPriority(cfg.Forms.SettlementPriority)
	if err != nil {
		return routes.Dependencies{}, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		return routes.Dependencies{}, err
	}
	settlements, err := settlement.NewService(settlement.ServiceParams{
		References: refs,
		Poster:     backendClient,
		Ledger:     ledgerSvc,
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Metrics:    deskMetrics,
		Priority:   priority,
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	apiLimiter, submitLimiter, err := limiters(cfg.RateLimit, redisClient)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Idempotency:   redisClient,
		Forms:         forms,
		Settlements:   settlements,
		RefData:       refs,
		APILimiter:    apiLimiter,
		SubmitLimiter: submitLimiter,
	}, nil
}

func limiters(cfg config.RateLimitConfig, redisClient *redis.Client) (*limiter.Limiter, *limiter.Limiter, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	store, err := limiterredis.NewStoreWithOptions(redisClient.Raw(), limiter.StoreOptions{
		Prefix: redisClient.RateLimitPrefix("api"),
	})
	if err != nil {
		return nil, nil, err
	}
	apiLimiter, err := middleware.NewLimiter(store, cfg.Rate)
	if err != nil {
		return nil, nil, err
	}
	submitLimiter, err := middleware.NewLimiter(store, cfg.Submit)
	if err != nil {
		return nil, nil, err
	}
	return apiLimiter, submitLimiter, nil
}

func serverPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return cfg.App.Port
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
