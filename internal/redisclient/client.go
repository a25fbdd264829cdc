package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"warehouse-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/set_levels.lua
var setLevelsScript string

//go:embed scripts/release_lock.lua
var releaseLockScript string

const (
	levelsKey        = "inventory:levels"
	levelsVersionKey = "inventory:levels:version"
)

// ErrLockNotHeld is returned by ReleaseLock when the token no longer owns the lock
var ErrLockNotHeld = errors.New("lock not held")

type Client struct {
	rdb           *redis.Client
	levelTTL      time.Duration
	setLevels     *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int, levelTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewClientFromRedis(rdb, levelTTL), nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client, levelTTL time.Duration) *Client {
	return &Client{
		rdb:           rdb,
		levelTTL:      levelTTL,
		setLevels:     redis.NewScript(setLevelsScript),
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Ping checks Redis connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetLevels returns the cached inventory levels and the current cache
// version; ok is false on a miss.
func (c *Client) GetLevels(ctx context.Context) ([]models.InventoryLevel, int64, bool, error) {
	vals, err := c.rdb.MGet(ctx, levelsKey, levelsVersionKey).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("get cached levels: %w", err)
	}

	var version int64
	if raw, isSet := vals[1].(string); isSet {
		version, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, false, fmt.Errorf("decode levels version: %w", err)
		}
	}

	raw, isSet := vals[0].(string)
	if !isSet {
		return nil, version, false, nil
	}

	var levels []models.InventoryLevel
	if err := json.Unmarshal([]byte(raw), &levels); err != nil {
		return nil, version, false, fmt.Errorf("decode cached levels: %w", err)
	}
	return levels, version, true, nil
}

// SetLevels caches levels for the configured TTL unless the cache was
// invalidated after version was read. stored reports whether it was written.
func (c *Client) SetLevels(ctx context.Context, version int64, levels []models.InventoryLevel) (bool, error) {
	data, err := json.Marshal(levels)
	if err != nil {
		return false, fmt.Errorf("encode levels: %w", err)
	}

	stored, err := c.setLevels.Run(ctx, c.rdb,
		[]string{levelsKey, levelsVersionKey},
		version, data, c.levelTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("set cached levels: %w", err)
	}
	return stored == 1, nil
}

// InvalidateLevels bumps the cache version and drops the cached levels
func (c *Client) InvalidateLevels(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, levelsVersionKey)
		pipe.Del(ctx, levelsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached levels: %w", err)
	}
	return nil
}

// AcquireLock acquires a distributed lock and returns the owner token
// needed to release it
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock releases a distributed lock if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	deleted, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lockKey, err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
