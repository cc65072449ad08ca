package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// PgProfileRepository implements ProfileRepository using pgx.
type PgProfileRepository struct{}

// NewPgProfileRepository creates a new PgProfileRepository.
func NewPgProfileRepository() *PgProfileRepository {
	return &PgProfileRepository{}
}

const profileColumns = `id, username, full_name, avatar_url, currency, created_at, updated_at`

// FindByID returns a profile, or nil if not found.
func (r *PgProfileRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Profile, error) {
	row := db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// CreateIfMissing inserts the profile unless the row already exists, then
// returns whatever is stored. Concurrent first reads converge on one row.
func (r *PgProfileRepository) CreateIfMissing(ctx context.Context, db DBTX, profile *domain.Profile) (*domain.Profile, error) {
	_, err := db.Exec(ctx,
		`INSERT INTO profiles (id, username, full_name, avatar_url, currency)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Username, profile.FullName, profile.AvatarURL, profile.Currency)
	if err != nil {
		return nil, err
	}
	return scanProfile(db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, profile.ID))
}

// Update modifies a profile.
func (r *PgProfileRepository) Update(ctx context.Context, db DBTX, profile *domain.Profile) error {
	_, err := db.Exec(ctx,
		`UPDATE profiles SET
		 username = $2, full_name = $3, avatar_url = $4, currency = $5, updated_at = $6
		 WHERE id = $1`,
		profile.ID, profile.Username, profile.FullName, profile.AvatarURL,
		profile.Currency, profile.UpdatedAt,
	)
	return err
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
