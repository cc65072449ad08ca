package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/currency"
	"github.com/bettingtipspro/tracker/internal/domain"
	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/repository"
)

// ProfileService reads and edits the per-user profile row.
type ProfileService struct {
	db       repository.DB
	profiles repository.ProfileRepository
	events   events.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileService creates a ProfileService.
func NewProfileService(db repository.DB, profiles repository.ProfileRepository, pub events.Publisher, logger *zap.Logger) *ProfileService {
	return &ProfileService{db: db, profiles: profiles, events: pub, logger: logger, now: time.Now}
}

// GetOrCreate returns the user's profile, creating a default one on first read.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	p, err := s.profiles.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors du chargement du profil", err)
	}
	if p != nil {
		return p, nil
	}
	p, err = s.profiles.CreateIfMissing(ctx, s.db, &domain.Profile{ID: userID, Currency: domain.DefaultCurrency})
	if err != nil {
		return nil, domain.ErrInternal("Erreur lors de la création du profil", err)
	}
	s.logger.Info("profile created", zap.String("user_id", userID.String()))
	return p, nil
}

// Update applies u to the user's profile.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, u domain.ProfileUpdate) (*domain.Profile, error) {
	if err := domain.ValidateStruct(u); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if u.Currency != nil && !currency.IsSupported(*u.Currency) {
		return nil, domain.ErrValidation("Devise non prise en charge")
	}

	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Apply(p, s.now())
	if err := s.profiles.Update(ctx, s.db, p); err != nil {
		return nil, domain.ErrInternal("Erreur lors de la mise à jour du profil", err)
	}
	s.events.Publish(ctx, events.New(events.ProfileUpdated, userID, p))
	return p, nil
}

// Currency returns the user's display currency, or the default when the
// profile cannot be read.
func (s *ProfileService) Currency(ctx context.Context, userID uuid.UUID) string {
	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Warn("profile currency", zap.String("user_id", userID.String()), zap.Error(err))
		return domain.DefaultCurrency
	}
	return p.Currency
}
