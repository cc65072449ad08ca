package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// PgResetTokenRepository implements ResetTokenRepository using pgx.
type PgResetTokenRepository struct{}

// NewPgResetTokenRepository creates a new PgResetTokenRepository.
func NewPgResetTokenRepository() *PgResetTokenRepository {
	return &PgResetTokenRepository{}
}

// Create stores a token hash.
func (r *PgResetTokenRepository) Create(ctx context.Context, db DBTX, t *domain.PasswordResetToken) error {
	_, err := db.Exec(ctx,
		`INSERT INTO password_reset_tokens (token_hash, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.UserID, t.ExpiresAt, t.CreatedAt)
	return err
}

// LockByHash returns the token locked for update, or nil if unknown.
func (r *PgResetTokenRepository) LockByHash(ctx context.Context, tx pgx.Tx, hash string) (*domain.PasswordResetToken, error) {
	row := tx.QueryRow(ctx,
		`SELECT token_hash, user_id, expires_at, used_at, created_at
		 FROM password_reset_tokens WHERE token_hash = $1 FOR UPDATE`, hash)

	t := &domain.PasswordResetToken{}
	err := row.Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MarkUsed stamps used_at so the token cannot be replayed.
func (r *PgResetTokenRepository) MarkUsed(ctx context.Context, db DBTX, hash string, at time.Time) error {
	_, err := db.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = $2 WHERE token_hash = $1`, hash, at)
	return err
}
