package guard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgTooManyConnections is SQLSTATE too_many_connections.
const pgTooManyConnections = "53300"

// rateLimitPhrases are matched case-insensitively against error messages.
// A bare "rate" is too broad: it also matches "generate" or "migrate".
var rateLimitPhrases = []string{"rate limit", "rate-limit", "ratelimit", "rate exceeded", "too many"}

// IsRateLimited reports whether err signals upstream throttling: Postgres
// refusing connections, or a message naming a rate limit or "Too Many".
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgTooManyConnections {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Retrier reruns an operation that failed with a rate-limit error. Attempt n
// (from 0) waits (n+1) x BaseDelay before retrying.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
	OnRetry    func(attempt int, delay time.Duration, err error)
}

// NewRetrier returns the default policy: 3 retries, 2s, 4s then 6s apart.
func NewRetrier() *Retrier {
	return &Retrier{MaxRetries: 3, BaseDelay: 2 * time.Second, Sleep: sleepCtx}
}

// ErrRetriesExhausted wraps the last rate-limit error once every retry failed.
var ErrRetriesExhausted = errors.New("rate limited after retries")

// Do runs fn until it succeeds, fails with an error that is not a rate
// limit, or the retries are used up.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !IsRateLimited(err) {
			return err
		}
		if attempt >= r.MaxRetries {
			return errors.Join(ErrRetriesExhausted, err)
		}
		delay := time.Duration(attempt+1) * r.BaseDelay
		if r.OnRetry != nil {
			r.OnRetry(attempt+1, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
