//go:build integration

package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/app"
	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/cache"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/infra"
	"github.com/bettingtipspro/tracker/internal/ocr"
)

const TestJWTSecret = "integration-test-secret-integration-test"

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	DSN    string
	JWTMgr *auth.JWTManager
	Bus    *events.Bus
	Mailer *CapturingMailer
	t      *testing.T
}

// Options tweak the router built by NewTestEnv.
type Options struct {
	VisionModel  ocr.Model
	TextModel    ocr.Model
	OCRRateLimit int
}

var (
	sharedPool *pgxpool.Pool
	sharedDSN  string
	poolOnce   sync.Once
	poolErr    error
)

// startPostgres launches one container for the whole test binary. Ryuk
// reaps it when the process exits.
func startPostgres() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("bettingtips_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":    "bettingtips-integration",
			"cleanup": "auto",
		}),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}

func getSharedPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	poolOnce.Do(func() {
		dsn, err := startPostgres()
		if err != nil {
			poolErr = err
			return
		}
		if err := infra.RunMigrations(dsn, zap.NewNop()); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := infra.NewPostgresPoolFromDSN(ctx, dsn)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
			return
		}
		sharedPool, sharedDSN = pool, dsn
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool, sharedDSN
}

// NewTestEnv creates a test environment with an httptest.Server backed by the real router and test DB.
func NewTestEnv(t *testing.T) *TestEnv {
	return NewTestEnvWith(t, Options{})
}

// NewTestEnvWith is NewTestEnv with OCR models and limits.
func NewTestEnvWith(t *testing.T, opts Options) *TestEnv {
	t.Helper()

	pool, dsn := getSharedPool(t)
	if opts.OCRRateLimit == 0 {
		opts.OCRRateLimit = 10
	}

	logger := zap.NewNop()
	jwtMgr := auth.NewJWTManager(TestJWTSecret, 24*time.Hour)
	reg := prometheus.NewRegistry()
	bus := events.NewBus()
	statsCache := cache.NewMemoryStatsCache(time.Minute)
	unsubscribe := cache.InvalidateOnBetEvents(bus, statsCache, logger)
	mailer := &CapturingMailer{}

	router := app.NewRouter(app.RouterDeps{
		DB:               pool,
		JWTMgr:           jwtMgr,
		Denylist:         auth.NewMemoryDenylist(),
		StatsCache:       statsCache,
		Bus:              bus,
		Metrics:          infra.NewMetrics(reg),
		Gatherer:         reg,
		Logger:           logger,
		VisionModel:      opts.VisionModel,
		TextModel:        opts.TextModel,
		OCRRateLimit:     opts.OCRRateLimit,
		Mailer:           mailer,
		PasswordResetURL: "http://localhost:3000/auth/reset",
		AllowedOrigins:   []string{"*"},
		Location:         time.UTC,
	})

	server := httptest.NewServer(router)

	env := &TestEnv{
		Server: server,
		Pool:   pool,
		DSN:    dsn,
		JWTMgr: jwtMgr,
		Bus:    bus,
		Mailer: mailer,
		t:      t,
	}

	t.Cleanup(func() {
		server.Close()
		unsubscribe()
		env.CleanAll()
	})

	// Clean before test to ensure isolation
	env.CleanAll()

	return env
}
