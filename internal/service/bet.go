package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/cache"
	"github.com/bettingtipspro/tracker/internal/currency"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/export"
	"github.com/bettingtipspro/tracker/internal/guard"
	"github.com/bettingtipspro/tracker/internal/infra"
	"github.com/bettingtipspro/tracker/internal/repository"
	"github.com/bettingtipspro/tracker/internal/stats"
)

// BetDeps groups BetService collaborators.
type BetDeps struct {
	DB       repository.DB
	Bets     repository.BetRepository
	Profiles *ProfileService
	Cache    cache.StatsCache
	Events   events.Publisher
	Retrier  *guard.Retrier
	Metrics  *infra.Metrics
	Location *time.Location
	Logger   *zap.Logger
}

// BetService owns every bet read and write for an authenticated user.
type BetService struct {
	db       repository.DB
	bets     repository.BetRepository
	profiles *ProfileService
	cache    cache.StatsCache
	events   events.Publisher
	retrier  *guard.Retrier
	metrics  *infra.Metrics
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewBetService creates a BetService. Rate-limit retries are counted on
// the metrics.
func NewBetService(d BetDeps) *BetService {
	s := &BetService{
		db:       d.DB,
		bets:     d.Bets,
		profiles: d.Profiles,
		cache:    d.Cache,
		events:   d.Events,
		metrics:  d.Metrics,
		loc:      d.Location,
		logger:   d.Logger,
		now:      time.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	base := d.Retrier
	if base == nil {
		base = guard.NewRetrier()
	}
	r := *base
	r.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.metrics.RateLimitRetries.Inc()
		s.logger.Warn("rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	s.retrier = &r
	return s
}

// Create validates in and stores a new bet owned by userID.
func (s *BetService) Create(ctx context.Context, userID uuid.UUID, in domain.CreateBetInput) (*domain.Bet, error) {
	if err := domain.ValidateStruct(in); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	bet := domain.NewBet(userID, in, s.now())
	if err := s.bets.Create(ctx, s.db, bet); err != nil {
		return nil, domain.ErrInternal("Erreur lors de la création du pari", err)
	}

	s.metrics.BetWrites.WithLabelValues("create").Inc()
	s.events.Publish(ctx, events.ForBet(events.BetCreated, userID, bet.ID, bet))
	return bet, nil
}

// Get returns one of the user's bets.
func (s *BetService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Bet, error) {
	bet, err := s.bets.FindByID(ctx, s.db, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la récupération du pari", err)
	}
	if bet == nil {
		return nil, domain.ErrBetNotFound()
	}
	return bet, nil
}

// Update applies a partial patch under a row lock so concurrent edits of the
// same bet serialize.
func (s *BetService) Update(ctx context.Context, userID, id uuid.UUID, patch domain.BetPatch) (*domain.Bet, error) {
	if err := domain.ValidateStruct(patch); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if patch.IsEmpty() {
		return nil, domain.ErrValidation("Aucune modification fournie")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la mise à jour du pari", err)
	}
	defer tx.Rollback(ctx)

	bet, err := s.bets.LockForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la mise à jour du pari", err)
	}
	if bet == nil {
		return nil, domain.ErrBetNotFound()
	}

	patch.Apply(bet, s.now())
	ok, err := s.bets.Update(ctx, tx, bet)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la mise à jour du pari", err)
	}
	if !ok {
		return nil, domain.ErrBetNotFound()
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("Erreur lors de la mise à jour du pari", err)
	}

	s.metrics.BetWrites.WithLabelValues("update").Inc()
	s.events.Publish(ctx, events.ForBet(events.BetUpdated, userID, bet.ID, bet))
	return bet, nil
}

// UpdateStatus changes only the status; actual_win follows from it.
func (s *BetService) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status domain.BetStatus) (*domain.Bet, error) {
	if !status.Valid() {
		return nil, domain.ErrValidation("Statut invalide")
	}
	return s.Update(ctx, userID, id, domain.BetPatch{Status: &status})
}

// Delete removes the user's bet. A missing or foreign id is a 404.
func (s *BetService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.bets.Delete(ctx, s.db, userID, id)
	if err != nil {
		return domain.ErrInternal("Erreur lors de la suppression du pari", err)
	}
	if !ok {
		return domain.ErrBetNotFound()
	}

	s.metrics.BetWrites.WithLabelValues("delete").Inc()
	s.events.Publish(ctx, events.ForBet(events.BetDeleted, userID, id, nil))
	return nil
}

// ListOptions narrows List. Limit <= 0 returns every bet.
type ListOptions struct {
	Limit  int
	Filter export.Filter
}

// List returns the user's bets, newest first.
func (s *BetService) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]domain.Bet, error) {
	limit := opts.Limit
	if opts.Filter != (export.Filter{}) {
		// Filters apply before the limit.
		limit = 0
	}
	bets, err := s.load(ctx, "Erreur lors de la récupération des paris", func(ctx context.Context) ([]domain.Bet, error) {
		return s.bets.ListByUser(ctx, s.db, userID, limit)
	})
	if err != nil {
		return nil, err
	}
	bets = opts.Filter.Apply(bets)
	if opts.Limit > 0 && len(bets) > opts.Limit {
		bets = bets[:opts.Limit]
	}
	return bets, nil
}

// StatsResult is the summary plus the same amounts formatted in the user's
// currency.
type StatsResult struct {
	stats.Summary
	Currency  string         `json:"currency"`
	Formatted FormattedStats `json:"formatted"`
}

// FormattedStats holds display strings for the money fields of a Summary.
type FormattedStats struct {
	TotalStaked    string `json:"totalStaked"`
	TotalWon       string `json:"totalWon"`
	TotalLost      string `json:"totalLost"`
	NetProfit      string `json:"netProfit"`
	InvestedAmount string `json:"investedAmount"`
}

// Stats returns the user's headline statistics, served from the cache when
// possible.
func (s *BetService) Stats(ctx context.Context, userID uuid.UUID) (*StatsResult, error) {
	summary, err := s.summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	code := s.profiles.Currency(ctx, userID)
	return &StatsResult{
		Summary:  summary,
		Currency: code,
		Formatted: FormattedStats{
			TotalStaked:    currency.Format(summary.TotalStaked, code),
			TotalWon:       currency.Format(summary.TotalWon, code),
			TotalLost:      currency.Format(summary.TotalLost, code),
			NetProfit:      currency.FormatWithSign(summary.NetProfit, code),
			InvestedAmount: currency.Format(summary.InvestedAmount, code),
		},
	}, nil
}

func (s *BetService) summary(ctx context.Context, userID uuid.UUID) (stats.Summary, error) {
	cached, gen, ok, err := s.cache.Get(ctx, userID)
	cacheable := err == nil
	switch {
	case err != nil:
		s.logger.Warn("stats cache get", zap.String("user_id", userID.String()), zap.Error(err))
		s.metrics.CacheLookups.WithLabelValues("error").Inc()
	case ok:
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return *cached, nil
	default:
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	bets, err := s.load(ctx, "Erreur lors de la récupération des statistiques", func(ctx context.Context) ([]domain.Bet, error) {
		return s.bets.ListByUser(ctx, s.db, userID, 0)
	})
	if err != nil {
		return stats.Summary{}, err
	}
	summary := stats.Summarize(bets)
	if !cacheable {
		return summary, nil
	}
	// A write since Get bumped the generation and Set drops this summary.
	if err := s.cache.Set(ctx, userID, gen, summary); err != nil {
		s.logger.Warn("stats cache set", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return summary, nil
}

// Performance buckets the user's profit over the last period days.
func (s *BetService) Performance(ctx context.Context, userID uuid.UUID, period string) (*stats.PerformanceReport, error) {
	p, err := stats.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	now := s.now()
	// One extra day covers the start-of-day cutoff in any zone.
	since := now.AddDate(0, 0, -int(p)-1)
	bets, err := s.load(ctx, "Erreur lors du calcul des performances", func(ctx context.Context) ([]domain.Bet, error) {
		return s.bets.ListCreatedSince(ctx, s.db, userID, since)
	})
	if err != nil {
		return nil, err
	}
	report := stats.Performance(bets, p, now, s.loc)
	return &report, nil
}

// Breakdown returns the analysis charts for the given range.
func (s *BetService) Breakdown(ctx context.Context, userID uuid.UUID, rng string) (*stats.BreakdownReport, error) {
	r, err := stats.ParseRange(rng)
	if err != nil {
		return nil, err
	}
	now := s.now()
	bets, err := s.load(ctx, "Erreur lors de l'analyse des paris", func(ctx context.Context) ([]domain.Bet, error) {
		if cutoff := r.Cutoff(now); !cutoff.IsZero() {
			return s.bets.ListCreatedSince(ctx, s.db, userID, cutoff)
		}
		return s.bets.ListByUser(ctx, s.db, userID, 0)
	})
	if err != nil {
		return nil, err
	}
	report := stats.Breakdown(bets, r, now, s.loc)
	return &report, nil
}

// ExportResult is a rendered CSV download.
type ExportResult struct {
	Filename string
	Rows     int
	Data     []byte
}

// Export renders the filtered history as CSV.
func (s *BetService) Export(ctx context.Context, userID uuid.UUID, filter export.Filter) (*ExportResult, error) {
	bets, err := s.List(ctx, userID, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, bets, s.loc); err != nil {
		return nil, domain.ErrInternal("Erreur lors de l'export", err)
	}
	return &ExportResult{
		Filename: export.Filename(s.now().In(s.loc)),
		Rows:     len(bets),
		Data:     buf.Bytes(),
	}, nil
}

// load runs a read through the rate-limit retrier. Exhausted retries become
// a 429; anything else is an internal error carrying msg.
func (s *BetService) load(ctx context.Context, msg string, fn func(ctx context.Context) ([]domain.Bet, error)) ([]domain.Bet, error) {
	var bets []domain.Bet
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		bets, err = fn(ctx)
		return err
	})
	if errors.Is(err, guard.ErrRetriesExhausted) {
		return nil, domain.ErrRateLimited(err)
	}
	if err != nil {
		return nil, domain.ErrInternal(msg, err)
	}
	return bets, nil
}
