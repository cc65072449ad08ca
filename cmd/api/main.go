package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/app"
	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/cache"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/infra"
	"github.com/bettingtipspro/tracker/internal/ocr"
	"github.com/bettingtipspro/tracker/internal/service"
)

const statsCacheTTL = 5 * time.Minute

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := infra.NewLogger("bettingtips-api", cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Denylist and stats cache live in Redis when enabled so that sign-outs
	// and cached aggregates are shared across instances.
	var (
		denylist   auth.Denylist
		statsCache cache.StatsCache
	)
	if cfg.RedisEnabled {
		rdb, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		denylist = auth.NewRedisDenylist(rdb)
		statsCache = cache.NewRedisStatsCache(rdb, statsCacheTTL)
		logger.Info("connected to redis")
	} else {
		denylist = auth.NewMemoryDenylist()
		statsCache = cache.NewMemoryStatsCache(statsCacheTTL)
	}

	// Events
	bus := events.NewBus()
	defer cache.InvalidateOnBetEvents(bus, statsCache, logger)()

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	if producer.Enabled() {
		defer events.Forward(bus, producer, logger)()
	}

	// OCR models
	var vision, text ocr.Model
	if cfg.GeminiAPIKey != "" {
		client, err := ocr.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		vision = ocr.NewGeminiModel(client, cfg.OCRVisionModel)
		text = ocr.NewGeminiModel(client, cfg.OCRTextModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set, OCR returns the fallback ticket")
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := infra.NewMetrics(reg)

	r := app.NewRouter(app.RouterDeps{
		DB:               pool,
		JWTMgr:           auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry),
		Denylist:         denylist,
		StatsCache:       statsCache,
		Bus:              bus,
		Metrics:          metrics,
		Gatherer:         reg,
		Logger:           logger,
		VisionModel:      vision,
		TextModel:        text,
		OCRRateLimit:     cfg.OCRRateLimit,
		Mailer:           service.NewLogMailer(logger),
		PasswordResetURL: cfg.PasswordResetURL,
		AllowedOrigins:   cfg.AllowedOrigins(),
		Location:         cfg.Location(),
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // OCR calls can take a while
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
