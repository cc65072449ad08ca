//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every application table. Child tables go first even
// though CASCADE would cover them.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"bets",
		"password_reset_tokens",
		"login_attempts",
		"profiles",
		"auth_users",
	}

	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
	}
}
