package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bettingtipspro/tracker/internal/domain"
)

// ErrDuplicateEmail is returned by Create when the email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

const pgUniqueViolation = "23505"

// PgAuthUserRepository implements AuthUserRepository using pgx.
type PgAuthUserRepository struct{}

// NewPgAuthUserRepository creates a new PgAuthUserRepository.
func NewPgAuthUserRepository() *PgAuthUserRepository {
	return &PgAuthUserRepository{}
}

// FindByEmail returns an auth user by email, or nil if not found.
func (r *PgAuthUserRepository) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.AuthUser, error) {
	row := db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM auth_users WHERE email = $1`, email)
	return scanAuthUser(row)
}

// FindByID returns an auth user by id, or nil if not found.
func (r *PgAuthUserRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AuthUser, error) {
	row := db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at
		 FROM auth_users WHERE id = $1`, id)
	return scanAuthUser(row)
}

func scanAuthUser(row pgx.Row) (*domain.AuthUser, error) {
	u := &domain.AuthUser{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new auth user.
func (r *PgAuthUserRepository) Create(ctx context.Context, db DBTX, user *domain.AuthUser) error {
	err := db.QueryRow(ctx,
		`INSERT INTO auth_users (id, email, password_hash) VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert auth user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the password hash of the given user.
func (r *PgAuthUserRepository) UpdatePasswordHash(ctx context.Context, db DBTX, id uuid.UUID, hash string) error {
	tag, err := db.Exec(ctx,
		`UPDATE auth_users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("Utilisateur introuvable")
	}
	return nil
}
