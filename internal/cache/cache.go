// Package cache holds per-user statistics summaries between bet writes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bettingtipspro/tracker/internal/events"
	"github.com/bettingtipspro/tracker/internal/stats"
)

// StatsCache stores a user's summary until their bets change.
//
// Each user has a generation that Invalidate bumps. Get reports the current
// generation and Set records the one its summary was computed under; an entry
// from an older generation is never served. A read that races a write can
// therefore not put back a summary the write already invalidated.
type StatsCache interface {
	Get(ctx context.Context, userID uuid.UUID) (s *stats.Summary, gen uint64, ok bool, err error)
	Set(ctx context.Context, userID uuid.UUID, gen uint64, s stats.Summary) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// MemoryStatsCache is a TTL map guarded by a mutex.
type MemoryStatsCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]memoryEntry
	gens    map[uuid.UUID]uint64
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	summary stats.Summary
	gen     uint64
	expires time.Time
}

// NewMemoryStatsCache creates an in-process cache.
func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{
		entries: make(map[uuid.UUID]memoryEntry),
		gens:    make(map[uuid.UUID]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryStatsCache) Get(_ context.Context, userID uuid.UUID) (*stats.Summary, uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gens[userID]
	e, ok := c.entries[userID]
	if !ok {
		return nil, gen, false, nil
	}
	if e.gen != gen || !c.now().Before(e.expires) {
		delete(c.entries, userID)
		return nil, gen, false, nil
	}
	s := e.summary
	return &s, gen, true, nil
}

func (c *MemoryStatsCache) Set(_ context.Context, userID uuid.UUID, gen uint64, s stats.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gens[userID] {
		return nil
	}
	c.entries[userID] = memoryEntry{summary: s, gen: gen, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryStatsCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	delete(c.entries, userID)
	return nil
}

// genTTL keeps a generation counter well past any entry's TTL. An expired
// counter reads as 0, which only turns live entries into misses.
const genTTL = 24 * time.Hour

// RedisStatsCache stores summaries as JSON under stats:summary:<user id> and
// the generation counter under stats:gen:<user id>.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

type redisEntry struct {
	Gen     uint64        `json:"gen"`
	Summary stats.Summary `json:"summary"`
}

// NewRedisStatsCache creates a Redis-backed cache with the given TTL.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{client: client, ttl: ttl}
}

func key(userID uuid.UUID) string    { return "stats:summary:" + userID.String() }
func genKey(userID uuid.UUID) string { return "stats:gen:" + userID.String() }

func (c *RedisStatsCache) Get(ctx context.Context, userID uuid.UUID) (*stats.Summary, uint64, bool, error) {
	vals, err := c.client.MGet(ctx, genKey(userID), key(userID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("get cached stats: %w", err)
	}
	var gen uint64
	if raw, ok := vals[0].(string); ok {
		if gen, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, 0, false, fmt.Errorf("decode stats generation: %w", err)
		}
	}
	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false, nil
	}
	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached stats: %w", err)
	}
	if e.Gen != gen {
		return nil, gen, false, nil
	}
	return &e.Summary, gen, true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, userID uuid.UUID, gen uint64, s stats.Summary) error {
	b, err := json.Marshal(redisEntry{Gen: gen, Summary: s})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(userID), b, c.ttl).Err()
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Expire(ctx, genKey(userID), genTTL)
		pipe.Del(ctx, key(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached stats: %w", err)
	}
	return nil
}

// InvalidateOnBetEvents drops a user's cached summary whenever one of their
// bets is created, updated or deleted.
func InvalidateOnBetEvents(bus *events.Bus, c StatsCache, logger *zap.Logger) (unsubscribe func()) {
	return bus.Subscribe(func(ctx context.Context, e events.Event) {
		if err := c.Invalidate(ctx, e.UserID); err != nil {
			logger.Warn("invalidate stats cache",
				zap.String("user_id", e.UserID.String()),
				zap.Error(err),
			)
		}
	}, events.BetCreated, events.BetUpdated, events.BetDeleted)
}
