package repository

import (
	"context"
	"time"
)

// PgLoginAttemptStore records sign-in attempts in login_attempts. It
// satisfies guard.AttemptStore.
type PgLoginAttemptStore struct {
	db DBTX
}

// NewPgLoginAttemptStore creates a store bound to db.
func NewPgLoginAttemptStore(db DBTX) *PgLoginAttemptStore {
	return &PgLoginAttemptStore{db: db}
}

func (s *PgLoginAttemptStore) RecordAttempt(ctx context.Context, email, ip string, success bool) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO login_attempts (email, ip_address, success) VALUES ($1, $2, $3)`,
		email, ip, success)
	return err
}

func (s *PgLoginAttemptStore) CountFailures(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM login_attempts
		 WHERE email = $1 AND success = false AND created_at >= $2`,
		email, since).Scan(&n)
	return n, err
}
