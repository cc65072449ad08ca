package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DB is a DBTX that can also open transactions. *pgxpool.Pool satisfies it.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BetRepository provides access to bets. Every query is scoped by user id.
type BetRepository interface {
	// Create inserts a new bet.
	Create(ctx context.Context, db DBTX, bet *domain.Bet) error

	// FindByID returns the user's bet, or nil if it does not exist or
	// belongs to someone else.
	FindByID(ctx context.Context, db DBTX, userID, id uuid.UUID) (*domain.Bet, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the bet.
	LockForUpdate(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*domain.Bet, error)

	// Update writes every mutable column of bet. Returns false when no row matched.
	Update(ctx context.Context, db DBTX, bet *domain.Bet) (bool, error)

	// Delete removes the user's bet. Returns false when no row matched.
	Delete(ctx context.Context, db DBTX, userID, id uuid.UUID) (bool, error)

	// ListByUser returns bets ordered by created_at DESC. limit <= 0 means all.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, limit int) ([]domain.Bet, error)

	// ListCreatedSince returns bets created at or after since, oldest first.
	ListCreatedSince(ctx context.Context, db DBTX, userID uuid.UUID, since time.Time) ([]domain.Bet, error)
}

// AuthUserRepository provides access to auth_users.
type AuthUserRepository interface {
	// FindByEmail returns an auth user by email.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.AuthUser, error)

	// FindByID returns an auth user by id.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AuthUser, error)

	// Create inserts a new auth user. A duplicate email yields ErrDuplicateEmail.
	Create(ctx context.Context, db DBTX, user *domain.AuthUser) error

	// UpdatePasswordHash replaces the user's password hash.
	UpdatePasswordHash(ctx context.Context, db DBTX, id uuid.UUID, hash string) error
}

// ProfileRepository provides access to profiles.
type ProfileRepository interface {
	// FindByID returns a profile, or nil if not found.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Profile, error)

	// CreateIfMissing inserts a default profile unless one exists and
	// returns the stored row.
	CreateIfMissing(ctx context.Context, db DBTX, profile *domain.Profile) (*domain.Profile, error)

	// Update modifies a profile.
	Update(ctx context.Context, db DBTX, profile *domain.Profile) error
}

// ResetTokenRepository provides access to password_reset_tokens.
type ResetTokenRepository interface {
	// Create stores a token hash.
	Create(ctx context.Context, db DBTX, token *domain.PasswordResetToken) error

	// LockByHash returns the token row locked for update, or nil.
	LockByHash(ctx context.Context, tx pgx.Tx, hash string) (*domain.PasswordResetToken, error)

	// MarkUsed stamps used_at.
	MarkUsed(ctx context.Context, db DBTX, hash string, at time.Time) error
}
