package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
)

const lastSeenTTL = 30 * 24 * time.Hour

// LastSeenRepository remembers when a user was last connected, after the presence entry is gone.
type LastSeenRepository interface {
	Touch(ctx context.Context, userID string, at time.Time) error
	// Get returns nil when nothing is known about the user.
	Get(ctx context.Context, userID string) (*time.Time, error)
}

type redisLastSeenRepository struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisLastSeenRepository(rdb *redis.Client, logger *zap.Logger) LastSeenRepository {
	return &redisLastSeenRepository{rdb: rdb, logger: logger}
}

// last seen key: blogchat:lastseen:<user>
// Value: unix milliseconds, TTL bounds how long offline users are remembered
func lastSeenKey(userID string) string { return "blogchat:lastseen:" + userID }

func (r *redisLastSeenRepository) Touch(ctx context.Context, userID string, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, lastSeenKey(userID), at.UnixMilli(), lastSeenTTL).Err(); err != nil {
		r.logger.Warn("failed to record last seen", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("%w: record last seen: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (r *redisLastSeenRepository) Get(ctx context.Context, userID string) (*time.Time, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	val, err := r.rdb.Get(ctx, lastSeenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read last seen: %v", apperr.ErrPersistence, err)
	}
	return parseLastSeen(val)
}

func parseLastSeen(val string) (*time.Time, error) {
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt last seen value %q", apperr.ErrPersistence, val)
	}
	at := time.UnixMilli(ms).UTC()
	return &at, nil
}

// memoryLastSeenRepository is used when no Redis address is configured.
type memoryLastSeenRepository struct {
	mu   sync.RWMutex
	seen map[string]time.Time
}

func NewMemoryLastSeenRepository() LastSeenRepository {
	return &memoryLastSeenRepository{seen: make(map[string]time.Time)}
}

func (r *memoryLastSeenRepository) Touch(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[userID] = at
	return nil
}

func (r *memoryLastSeenRepository) Get(_ context.Context, userID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.seen[userID]
	if !ok {
		return nil, nil
	}
	return &at, nil
}
