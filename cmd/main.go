package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventpulse/internal/adapters/clickhouse"
	"eventpulse/internal/adapters/config"
	"eventpulse/internal/adapters/errors/noop"
	"eventpulse/internal/adapters/errors/sentry"
	"eventpulse/internal/adapters/kafka"
	"eventpulse/internal/adapters/postgres"
	"eventpulse/internal/adapters/redis"
	"eventpulse/internal/api"
	"eventpulse/internal/api/health"
	"eventpulse/internal/consumers"
	"eventpulse/internal/metrics"
	"eventpulse/internal/providers/candles"
	chrepo "eventpulse/internal/repository/clickhouse"
	pgrepo "eventpulse/internal/repository/postgres"
	"eventpulse/internal/services/ingestion"
	"eventpulse/internal/services/window"
	"eventpulse/internal/workers"
	"eventpulse/internal/workers/pipeline"
	"eventpulse/pkg/errors"
	"eventpulse/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	db, err := initDatabases(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.Close(log)

	metrics.RegisterCustomCollector(metrics.NewCustomCollector(log, db.Postgres.DB(), db.Redis.Client()))

	repos := initRepositories(db)
	services := initServices(cfg, repos, log)
	scheduler := initWorkers(cfg, db, repos, services)
	server := initAPI(cfg, db, repos, services, scheduler, log)

	log.Info("System initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   kafka.TopicCalendarRows,
		})
		calendarConsumer := consumers.NewCalendarConsumer(consumer, services.Ingest, log)
		go func() {
			if err := calendarConsumer.Start(ctx); err != nil {
				log.Errorf("Calendar consumer error: %v", err)
			}
		}()
	}

	waitForShutdown(ctx, cancel, shutdownDeps{
		scheduler:    scheduler,
		server:       server,
		consumer:     consumer,
		errorTracker: errorTracker,
	}, log)
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// Database bundles the storage connections
type Database struct {
	Postgres   *postgres.Client
	ClickHouse *clickhouse.Client
	Redis      *redis.Client
}

func initDatabases(cfg *config.Config, log *logger.Logger) (*Database, error) {
	log.Info("Initializing databases...")

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "postgres")
	}

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		return nil, errors.Wrap(err, "clickhouse")
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "redis")
	}

	log.Info("Databases initialized")
	return &Database{
		Postgres:   pgClient,
		ClickHouse: chClient,
		Redis:      redisClient,
	}, nil
}

func (db *Database) Close(log *logger.Logger) {
	if err := db.Postgres.Close(); err != nil {
		log.Warnf("Failed to close postgres: %v", err)
	}
	if err := db.ClickHouse.Close(); err != nil {
		log.Warnf("Failed to close clickhouse: %v", err)
	}
	if err := db.Redis.Close(); err != nil {
		log.Warnf("Failed to close redis: %v", err)
	}
}

// Repositories bundles the storage-backed repositories
type Repositories struct {
	Events    *pgrepo.EventRepository
	Windows   *pgrepo.WindowRepository
	Reactions *pgrepo.ReactionRepository
	Stats     *pgrepo.StatsRepository
	Hourly    *chrepo.HourlyCandleRepository
}

func initRepositories(db *Database) *Repositories {
	pg := pgrepo.Instrument(db.Postgres.DB())
	return &Repositories{
		Events:    pgrepo.NewEventRepository(pg),
		Windows:   pgrepo.NewWindowRepository(pg),
		Reactions: pgrepo.NewReactionRepository(pg),
		Stats:     pgrepo.NewStatsRepository(pg),
		Hourly:    chrepo.NewHourlyCandleRepository(db.ClickHouse.Conn()),
	}
}

// Services bundles the business logic services
type Services struct {
	Ingest   *ingestion.Service
	Capture  *window.Service
	Provider candles.Provider
}

func initServices(cfg *config.Config, repos *Repositories, log *logger.Logger) *Services {
	provider := candles.NewHTTPProvider(cfg.Provider)
	clock := window.NewMarketClock()

	return &Services{
		Ingest:   ingestion.NewService(repos.Events, log),
		Capture:  window.NewService(repos.Events, repos.Windows, provider, clock, cfg.Pipeline.TrackedPairs, log),
		Provider: provider,
	}
}

func initWorkers(cfg *config.Config, db *Database, repos *Repositories, services *Services) *workers.Scheduler {
	p := cfg.Pipeline
	cursors := pipeline.NewRedisCursorStore(db.Redis.Client())

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(pipeline.NewWindowFetcher(
		repos.Events, services.Capture, cursors,
		p.BatchSize, p.MaxBatchesPerRun, p.WindowFetchInterval, p.WindowFetchEnabled,
	))
	scheduler.RegisterWorker(pipeline.NewReactionProcessor(
		repos.Events, repos.Windows, repos.Reactions, cursors,
		p.BatchSize, p.MaxBatchesPerRun, p.ReactionInterval, p.ReactionEnabled,
	))
	scheduler.RegisterWorker(pipeline.NewSettlementBackfiller(
		repos.Reactions, repos.Hourly, cursors,
		p.BatchSize, p.MaxBatchesPerRun, p.SettlementInterval, p.SettlementEnabled,
	))
	scheduler.RegisterWorker(pipeline.NewStatsRefresher(
		repos.Events, repos.Reactions, repos.Stats, cursors,
		p.BatchSize, p.MaxBatchesPerRun, p.StatsRefreshInterval, p.StatsRefreshEnabled,
	))
	scheduler.RegisterWorker(pipeline.NewHourlyCollector(
		services.Provider, repos.Hourly, p.TrackedPairs,
		p.HourlyCollectInterval, p.HourlyCollectEnabled,
	))

	return scheduler
}

func initAPI(cfg *config.Config, db *Database, repos *Repositories, services *Services, scheduler *workers.Scheduler, log *logger.Logger) *api.Server {
	healthHandler := health.New(
		log, db.Postgres.DB(), db.ClickHouse.Conn(), db.Redis.Client(),
		cfg.App.Name, cfg.App.Version,
	)

	return api.NewServer(cfg, log, api.Deps{
		Events:    repos.Events,
		Windows:   repos.Windows,
		Reactions: repos.Reactions,
		Stats:     repos.Stats,
		Ingest:    services.Ingest,
		Scheduler: scheduler,
		Redis:     db.Redis.Client(),
		Health:    healthHandler,
	})
}

type shutdownDeps struct {
	scheduler    *workers.Scheduler
	server       *api.Server
	consumer     *kafka.Consumer
	errorTracker errors.Tracker
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, deps shutdownDeps, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("API shutdown error: %v", err)
	}
	if err := deps.scheduler.Stop(); err != nil {
		log.Warnf("Scheduler stop error: %v", err)
	}
	if deps.consumer != nil {
		if err := deps.consumer.Close(); err != nil {
			log.Warnf("Kafka consumer close error: %v", err)
		}
	}
	if deps.errorTracker != nil {
		if err := deps.errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
