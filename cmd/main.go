// deal-sniper
//
// Polls eBay search results for sneaker listings, keeps the ones that pass
// the configured price and keyword rules, and announces each new deal once:
//   - scraper:   fetch + extract + merge per search term
//   - deals:     filter rules and the 0-10 deal score
//   - store:     seen-URL dedup (PostgreSQL or Redis)
//   - notify:    log, Redis pub/sub and Kafka fan-out
//   - scheduler: the poll loop
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"sneakerbot/deal-sniper/internal/archive"
	"sneakerbot/deal-sniper/internal/config"
	"sneakerbot/deal-sniper/internal/db"
	"sneakerbot/deal-sniper/internal/notify"
	"sneakerbot/deal-sniper/internal/scheduler"
	"sneakerbot/deal-sniper/internal/scraper"
	"sneakerbot/deal-sniper/internal/store"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("deal-sniper starting", "version", version, "backend", cfg.StoreBackend)

	settings, err := config.OpenSettings(cfg.SettingsFile, logger)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Redis ────────────────────────────────────────────────────────────────
	var rdb *redis.Client
	if cfg.RedisURL != "" && (cfg.StoreBackend == config.BackendRedis || cfg.NotifyRedisChannel != "") {
		logger.Info("connecting to Redis")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("Redis connected")
	}

	// ── Store ────────────────────────────────────────────────────────────────
	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendRedis:
		st = store.NewRedis(rdb, store.DefaultRedisPrefix)
	default:
		logger.Info("connecting to PostgreSQL")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, 4)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("PostgreSQL connected")
		st = store.NewPostgres(pool)
	}
	if n, err := st.Count(ctx); err == nil {
		logger.Info("dedup store ready", "seen", n)
	}

	// ── Notifiers ────────────────────────────────────────────────────────────
	notifiers := notify.Multi{notify.Log{Logger: logger.With("component", "deals")}}
	if cfg.NotifyRedisChannel != "" {
		notifiers = append(notifiers, notify.NewRedis(rdb, cfg.NotifyRedisChannel))
	}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := notify.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer k.Close()
		notifiers = append(notifiers, k)
		logger.Info("Kafka producer ready", "topic", cfg.KafkaTopic)
	}

	// ── Scraper ──────────────────────────────────────────────────────────────
	orchOpts := scraper.OrchestratorOptions{
		BaseURL:     cfg.MarketplaceBaseURL,
		Concurrency: cfg.FetchConcurrency,
	}
	if cfg.ArchiveBucket != "" {
		a, err := archive.NewS3(ctx, archive.S3Config{
			Bucket: cfg.ArchiveBucket,
			Prefix: cfg.ArchivePrefix,
			Region: cfg.AWSRegion,
		})
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		orchOpts.Archiver = a
		logger.Info("empty pages will be archived", "bucket", cfg.ArchiveBucket)
	}
	fetchOpts := scraper.FetcherOptions{
		Timeout:           cfg.FetchTimeout,
		MinDelay:          cfg.FetchMinDelay,
		MaxDelay:          cfg.FetchMaxDelay,
		RequestsPerSecond: cfg.FetchRPS,
	}
	if fetchOpts.MinDelay == 0 && fetchOpts.MaxDelay == 0 {
		fetchOpts.MaxDelay = -1
	}
	fetcher := scraper.NewFetcher(fetchOpts, logger)
	extractor := scraper.NewExtractor(scraper.DefaultLayout(), logger)
	orch := scraper.NewOrchestrator(fetcher, extractor, orchOpts, logger)

	// ── Scheduler ────────────────────────────────────────────────────────────
	opts := scheduler.Options{
		Overrun:     cfg.OverrunPolicy,
		Cooldown:    cfg.CycleCooldown,
		EvictEvery:  cfg.EvictEveryCycles,
		Retention:   cfg.Retention,
		NotifyDelay: cfg.NotifyDelay,
	}
	if opts.NotifyDelay == 0 {
		opts.NotifyDelay = -1
	}
	if cfg.PollSchedule != "" {
		sched, err := cron.ParseStandard(cfg.PollSchedule)
		if err != nil {
			return fmt.Errorf("POLL_SCHEDULE: %w", err)
		}
		opts.Schedule = sched
	}

	s := scheduler.New(orch, st, notifiers, settings, opts, logger)
	if err := s.Run(ctx); err != nil {
		return err
	}
	logger.Info("deal-sniper stopped")
	return nil
}

// newLogger builds the process logger. LOG_FILE, when set, receives a copy of
// everything written to stdout.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closeFn = func() { f.Close() }
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h), closeFn, nil
}
