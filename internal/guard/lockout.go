package guard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/domain"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// AttemptStore persists sign-in attempts.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, email, ip string, success bool) error
	CountFailures(ctx context.Context, email string, since time.Time) (int, error)
}

// Lockout blocks sign-in for an email after MaxAttempts failures within
// LockoutWindow.
type Lockout struct {
	store  AttemptStore
	logger *zap.Logger
	now    func() time.Time
}

// NewLockout creates a lockout guard over store.
func NewLockout(store AttemptStore, logger *zap.Logger) *Lockout {
	return &Lockout{store: store, logger: logger, now: time.Now}
}

// RecordAttempt stores the outcome of a sign-in. Errors are logged only.
func (l *Lockout) RecordAttempt(ctx context.Context, email, ip string, success bool) {
	if err := l.store.RecordAttempt(ctx, email, ip, success); err != nil {
		l.logger.Warn("record login attempt", zap.Error(err))
	}
}

// CheckLocked returns ErrAccountLocked when email has too many recent
// failures. A store error fails open.
func (l *Lockout) CheckLocked(ctx context.Context, email string) error {
	count, err := l.store.CountFailures(ctx, email, l.now().Add(-LockoutWindow))
	if err != nil {
		l.logger.Warn("count login failures", zap.Error(err))
		return nil
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("Trop de tentatives de connexion. Réessayez plus tard.")
	}
	return nil
}
