package app

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/auth"
	"github.com/bettingtipspro/tracker/internal/cache"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/handler"
	"github.com/bettingtipspro/tracker/internal/infra"
	"github.com/bettingtipspro/tracker/internal/ocr"
	"github.com/bettingtipspro/tracker/internal/repository"
	"github.com/bettingtipspro/tracker/internal/service"
)

// IdempotencyTTL is how long a POST /bets Idempotency-Key is remembered.
const IdempotencyTTL = 10 * time.Minute

// Database is what the router needs from the pool: queries, transactions
// and a health ping. *pgxpool.Pool satisfies it.
type Database interface {
	repository.DB
	infra.Pinger
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	DB         Database
	JWTMgr     *auth.JWTManager
	Denylist   auth.Denylist
	StatsCache cache.StatsCache
	Bus        *events.Bus
	Metrics    *infra.Metrics
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger

	// OCR models; either may be nil, in which case extraction falls through
	// to the next stage.
	VisionModel  ocr.Model
	TextModel    ocr.Model
	OCRRateLimit int

	Mailer           service.Mailer
	PasswordResetURL string
	AllowedOrigins   []string
	Location         *time.Location
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	db := deps.DB
	logger := deps.Logger

	// Repositories
	betRepo := repository.NewPgBetRepository()
	authUserRepo := repository.NewPgAuthUserRepository()
	profileRepo := repository.NewPgProfileRepository()
	resetRepo := repository.NewPgResetTokenRepository()
	attempts := repository.NewPgLoginAttemptStore(db)

	// Services
	profileSvc := service.NewProfileService(db, profileRepo, deps.Bus, logger)
	authSvc := service.NewAuthService(service.AuthDeps{
		DB:       db,
		Users:    authUserRepo,
		Profiles: profileRepo,
		Resets:   resetRepo,
		JWTMgr:   deps.JWTMgr,
		Denylist: deps.Denylist,
		Lockout:  guard.NewLockout(attempts, logger),
		Mailer:   deps.Mailer,
		Events:   deps.Bus,
		ResetURL: deps.PasswordResetURL,
		Logger:   logger,
	})
	betSvc := service.NewBetService(service.BetDeps{
		DB:       db,
		Bets:     betRepo,
		Profiles: profileSvc,
		Cache:    deps.StatsCache,
		Events:   deps.Bus,
		Metrics:  deps.Metrics,
		Location: deps.Location,
		Logger:   logger,
	})
	extractor := ocr.NewExtractor(deps.VisionModel, deps.TextModel, deps.Metrics, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	betHandler := handler.NewBetHandler(betSvc, guard.NewIdempotencyGuard(IdempotencyTTL))
	ocrHandler := handler.NewOCRHandler(extractor, guard.NewRateLimiter(deps.OCRRateLimit, time.Minute))

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger, deps.Metrics))
	r.Use(handler.CORS(deps.AllowedOrigins))
	r.Use(handler.JSONContentType)

	// No auth
	r.Get("/health", handler.HealthHandler(db))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	requireAuth := auth.Authenticate(deps.JWTMgr, deps.Denylist, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/login", authHandler.Login)
		r.Post("/password-reset", authHandler.RequestPasswordReset)
		r.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Update)
		})
	})

	r.Route("/bets", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", betHandler.List)
		r.Post("/", betHandler.Create)
		r.Get("/stats", betHandler.Stats)
		r.Get("/performance", betHandler.Performance)
		r.Get("/breakdown", betHandler.Breakdown)
		r.Get("/export", betHandler.Export)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", betHandler.Get)
			r.Patch("/", betHandler.Update)
			r.Delete("/", betHandler.Delete)
			r.Patch("/status", betHandler.UpdateStatus)
		})
	})

	r.Route("/ocr", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/extract", ocrHandler.Extract)
		r.Post("/quick", ocrHandler.Quick)
		r.Post("/validate", ocrHandler.Validate)
	})

	return r
}
