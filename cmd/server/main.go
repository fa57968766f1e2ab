package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/api"
	"github.com/ricirt/autoblog/internal/api/handler"
	"github.com/ricirt/autoblog/internal/config"
	"github.com/ricirt/autoblog/internal/db"
	"github.com/ricirt/autoblog/internal/events"
	"github.com/ricirt/autoblog/internal/linking"
	"github.com/ricirt/autoblog/internal/metrics"
	"github.com/ricirt/autoblog/internal/pipeline"
	"github.com/ricirt/autoblog/internal/provider"
	"github.com/ricirt/autoblog/internal/queue"
	"github.com/ricirt/autoblog/internal/ratelimiter"
	"github.com/ricirt/autoblog/internal/repository"
	"github.com/ricirt/autoblog/internal/secret"
	"github.com/ricirt/autoblog/internal/service"
	"github.com/ricirt/autoblog/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger := newLogger(cfg.LogFormat)
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// ---- storage ----
	queueRepo, content, storePing, closeStore := openStores(ctx, cfg, logger)
	defer closeStore()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched, schedPing, closeSched := openScheduler(cfg, logger)
	defer closeSched()

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		logger.Info("publishing lifecycle events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	limiters := ratelimiter.New(cfg.ProviderRateLimit)
	keys := secret.NewStore(cfg.EncryptionSalt, cfg.StabilityKeyEncrypted)
	text := provider.LimitText(
		provider.NewOpenAIText(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL),
		limiters, provider.NameOpenAI)
	images := provider.ImageProviders{
		provider.NameDallE: provider.LimitImage(
			provider.NewDallE(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), limiters, provider.NameDallE),
		provider.NameStability: provider.LimitImage(
			provider.NewStability(cfg.StabilityAPIURL, keys, cfg.ImageTimeout), limiters, provider.NameStability),
	}

	orch := pipeline.NewOrchestrator(text, images, content, linking.NewEngine(content), pipeline.Hooks{},
		pipeline.Settings{
			Temperature:  cfg.Temperature,
			TextTimeout:  cfg.TextTimeout,
			ImageTimeout: cfg.ImageTimeout,
		}, logger.Named("pipeline"))

	onComplete, onFailed, onImageError := m.DispatchHooks()
	disp := service.NewDispatcher(queueRepo, sched, orch, pub, service.MetricHooks{
		OnComplete:   onComplete,
		OnFailed:     onFailed,
		OnImageError: onImageError,
	}, logger.Named("dispatcher"))

	// The in-memory scheduler starts empty; re-submit what was queued before the restart.
	if cfg.SchedulerDriver == config.SchedulerMemory {
		n, err := disp.Resume(ctx)
		if err != nil {
			logger.Fatal("failed to resume queued items", zap.Error(err))
		}
		logger.Info("resumed queued items", zap.Int("count", n))
	}

	// ---- worker pool ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	pool := worker.NewPool(cfg.WorkerCount, sched, disp, logger)
	pool.Start(workerCtx)

	sweeper := worker.NewSweeper(disp, cfg.StaleInterval, cfg.StaleAfter,
		func(n int) { m.QueueDepth.Set(float64(n)) }, logger.Named("sweeper"))
	go sweeper.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(api.Deps{
		Dispatcher:   disp,
		Links:        content,
		Defaults:     cfg.Defaults,
		AdminToken:   cfg.AdminToken,
		HealthChecks: healthChecks(storePing, schedPing),
		Registry:     reg,
		Logger:       logger,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr),
			zap.String("store", cfg.StoreDriver), zap.String("scheduler", cfg.SchedulerDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal all workers to stop taking new tasks.
	cancelWorkers()

	// 3. Wait for in-flight workers to finish their current item.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown deadline reached with items in flight", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func newLogger(format string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if format == "console" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// openStores connects the configured backend and returns the queue store,
// the content store, a health ping and a close function.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.QueueRepository, repository.ContentStore, handler.HealthCheck, func()) {
	urls := repository.URLs{PublicBase: cfg.PublicBaseURL, AdminBase: cfg.AdminBaseURL}

	if cfg.StoreDriver == config.StoreSQLite {
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite database", zap.Error(err))
		}
		logger.Info("sqlite store ready", zap.String("path", cfg.SQLitePath))
		return repository.NewSQLiteQueueRepository(sqlDB), repository.NewSQLiteContentStore(sqlDB, urls),
			sqlDB.PingContext, func() { closeSQL(sqlDB, logger) }
	}

	pgPool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		pgPool.Close()
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")
	return repository.NewPgQueueRepository(pgPool), repository.NewPgContentStore(pgPool, urls),
		pgPool.Ping, pgPool.Close
}

func closeSQL(sqlDB *sql.DB, logger *zap.Logger) {
	if err := sqlDB.Close(); err != nil {
		logger.Warn("sqlite close error", zap.Error(err))
	}
}

// openScheduler builds the configured job scheduler, its health ping (nil for
// the in-process queue) and its close function.
func openScheduler(cfg *config.Config, logger *zap.Logger) (queue.Scheduler, handler.HealthCheck, func()) {
	if cfg.SchedulerDriver == config.SchedulerRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		q := queue.NewRedisQueue(client, "autoblog", logger.Named("scheduler"))
		n, err := q.Restore(context.Background())
		if err != nil {
			logger.Fatal("failed to restore redis tasks", zap.Error(err))
		}
		logger.Info("restored stranded redis tasks", zap.Int("count", n))
		return q, ping, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}
	}
	return queue.NewMemoryQueue(cfg.QueueCapacity), nil, func() {}
}

func healthChecks(store, sched handler.HealthCheck) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{"store": store}
	if sched != nil {
		checks["scheduler"] = sched
	}
	return checks
}
