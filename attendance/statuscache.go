package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/warp/timee/config"
	"github.com/warp/timee/generic"
	"go.uber.org/zap"
)

// StatusTTL bounds how long a status pointer is trusted at all.
const StatusTTL = 12 * time.Hour

// StatusCache keeps one StatusPointer per member. Values are advisory: the
// service re-reads the persisted record before every transition.
type StatusCache interface {
	Get(ctx context.Context, user generic.UserID) (StatusPointer, bool, error)
	Set(ctx context.Context, user generic.UserID, p StatusPointer) error
	Delete(ctx context.Context, user generic.UserID) error
}

// =============================================================================
// IN-PROCESS CACHE
// =============================================================================

type MemoryStatusCache struct {
	cache *generic.TTLCache[generic.UserID, StatusPointer]
}

// NewMemoryStatusCache creates a cache. A nil clock defaults to time.Now.
func NewMemoryStatusCache(now func() time.Time) *MemoryStatusCache {
	return &MemoryStatusCache{cache: generic.NewTTLCache[generic.UserID, StatusPointer](StatusTTL, now)}
}

func (c *MemoryStatusCache) Get(_ context.Context, user generic.UserID) (StatusPointer, bool, error) {
	p, ok := c.cache.Get(user)
	return p, ok, nil
}

func (c *MemoryStatusCache) Set(_ context.Context, user generic.UserID, p StatusPointer) error {
	c.cache.Set(user, p)
	return nil
}

func (c *MemoryStatusCache) Delete(_ context.Context, user generic.UserID) error {
	c.cache.Delete(user)
	return nil
}

// =============================================================================
// REDIS CACHE - Shared between server instances
// =============================================================================

const statusPrefix = "timee:status:"

type RedisStatusCache struct {
	rdb    *goredis.Client
	prefix string
	log    *zap.Logger
}

// NewRedisStatusCache connects and pings the server before returning.
func NewRedisStatusCache(cfg config.RedisConfig, scope string, log *zap.Logger) (*RedisStatusCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info("redis status cache connected", zap.String("addr", cfg.Addr))
	return &RedisStatusCache{rdb: rdb, prefix: statusPrefix + scope + ":", log: log}, nil
}

func (c *RedisStatusCache) key(user generic.UserID) string {
	return c.prefix + string(user)
}

func (c *RedisStatusCache) Get(ctx context.Context, user generic.UserID) (StatusPointer, bool, error) {
	var p StatusPointer
	raw, err := c.rdb.Get(ctx, c.key(user)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		// A pointer we cannot read is as good as a missing one.
		c.log.Warn("dropping unreadable status pointer", zap.String("user_id", string(user)), zap.Error(err))
		return p, false, nil
	}
	return p, true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, user generic.UserID, p StatusPointer) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(user), raw, StatusTTL).Err()
}

func (c *RedisStatusCache) Delete(ctx context.Context, user generic.UserID) error {
	return c.rdb.Del(ctx, c.key(user)).Err()
}

func (c *RedisStatusCache) Close() error {
	return c.rdb.Close()
}

var (
	_ StatusCache = (*MemoryStatusCache)(nil)
	_ StatusCache = (*RedisStatusCache)(nil)
)
