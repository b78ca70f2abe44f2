// Command analyticsd wires the analytics core's collaborators
// together and runs its two background services (the Event Tracker's
// flusher and the scheduled-job cron) until a termination signal
// arrives. The HTTP router, exporters, dashboard, and AI-insights
// integration this core serves are out of scope and are
// not started here.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/aggregator"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/attribution"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/cohort"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/config"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/domain/export"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/funnel"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/cache"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/database"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/logging"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/metrics"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/migrations"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/platform/ratelimit"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/processor"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/scheduler"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/sessionstate"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/memory"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/storage/postgres"
	"github.com/ganeshgowri-ASA/nexus-platform-sub002/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.WithField("error", err.Error()).Error("open store")
		os.Exit(1)
	}
	defer closeStore()

	cacheBackend := openCache(cfg)
	deps := newQueryDeps(store, log, cacheBackend, cfg)
	if _, err := deps.Limiter.Allow(ctx, "analyticsd:startup"); err != nil {
		log.WithField("error", err.Error()).Warn("cache connectivity check failed")
	}

	tr := tracker.New(store, m, log, tracker.Config{
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.FlushBatch,
		FlushInterval: cfg.FlushInterval,
		MaxRetries:    cfg.MaxRetries,
	})
	proc := processor.New(store, m, log)
	agg := aggregator.New(store, log)
	machine := sessionstate.New(store, log, cfg.SessionIdleTimeout)
	sched := scheduler.New(store, proc, agg, machine, export.NoopFileDeleter{}, m, log, scheduler.Config{
		ProcessingSchedule:  cronForInterval(cfg.ProcessingTickInterval),
		ProcessingBatch:     cfg.FlushBatch,
		AggregationSchedule: cfg.AggregationCronSchedule,
		ExpirySweepSchedule: cfg.ExpirySweepCronSchedule,
	})

	if err := tr.Start(ctx); err != nil {
		log.WithField("error", err.Error()).Error("start tracker")
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		log.WithField("error", err.Error()).Error("start scheduler")
		os.Exit(1)
	}

	log.WithField("env", string(cfg.Env)).Info("analyticsd started")
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Warn("scheduler stop")
	}
	if err := tr.Stop(shutdownCtx, true); err != nil {
		log.WithField("error", err.Error()).Warn("tracker stop")
	}
}

// openStore picks the Postgres-backed store when DATABASE_URL is
// configured, applying pending migrations first, and falls back to
// the in-memory store otherwise (local development only; production
// configs are rejected by Config.Validate without a DSN).
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		return memory.New(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Apply(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.New(db), func() { closeDB(db) }, nil
}

func closeDB(db *sql.DB) {
	_ = db.Close()
}

// openCache picks a Redis-backed cache when REDIS_ADDR is configured,
// sharing rate-limit counters and hot-read results across every
// analyticsd process, and falls back to an in-memory cache otherwise
// (local development only).
func openCache(cfg *config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	return cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
}

// queryDeps bundles the rate limiter and read-heavy query engines that
// back the (out-of-scope) HTTP router's per-request handlers. Building
// them here, against one shared cache, is what lets the rate limit and
// the funnel engine's hot reads hold across every process.
type queryDeps struct {
	Limiter     *ratelimit.Limiter
	Funnel      *funnel.Engine
	Cohort      *cohort.Engine
	Attribution *attribution.Engine
}

func newQueryDeps(store storage.Store, log *logging.Logger, c cache.Cache, cfg *config.Config) *queryDeps {
	return &queryDeps{
		Limiter: ratelimit.New(c, ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRequests,
			Burst:             cfg.RateLimitBurst,
		}),
		Funnel:      funnel.New(store, log, c),
		Cohort:      cohort.New(store, log),
		Attribution: attribution.New(store, log),
	}
}

// cronForInterval renders a time.Duration as the @every cron spec
// robfig/cron understands, so the scheduler's processing cadence stays
// configurable via PROCESSING_TICK_INTERVAL like every other knob.
func cronForInterval(d time.Duration) string {
	if d <= 0 {
		return "@every 1m"
	}
	return "@every " + d.String()
}
