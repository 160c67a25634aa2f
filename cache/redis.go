package cache

import (
	"context"
	"fmt"
	"time"

	"mirdata/config"
	"mirdata/logger"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the global Redis client, set by ConnectRedis.
var RedisClient *redis.Client

// ConnectRedis initializes the global Redis client and pings it.
func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	RedisClient = client
	return nil
}

// CloseRedis closes the global client.
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// TestRedis round-trips a key through the global client.
func TestRedis() error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	ctx := context.Background()

	const key = "mirdata:ping"
	if err := RedisClient.Set(ctx, key, "ok", time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != "ok" {
		return fmt.Errorf("unexpected value from Redis: got %s", val)
	}
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}

const (
	checksumKeyPrefix = "mirdata:md5:"
	// DefaultChecksumTTL bounds how long a file fingerprint is trusted.
	DefaultChecksumTTL = 7 * 24 * time.Hour
)

// ChecksumCache remembers md5 sums of dataset files in Redis. Keys embed the
// file size and mtime, so a modified file is simply a cache miss.
type ChecksumCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewChecksumCache wraps client. A ttl of zero uses DefaultChecksumTTL.
func NewChecksumCache(client redis.Cmdable, ttl time.Duration) *ChecksumCache {
	if ttl <= 0 {
		ttl = DefaultChecksumTTL
	}
	return &ChecksumCache{client: client, ttl: ttl}
}

// Get returns the cached sum for key. Redis errors count as a miss.
func (c *ChecksumCache) Get(ctx context.Context, key string) (string, bool) {
	sum, err := c.client.Get(ctx, checksumKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warn("checksum cache read failed", logger.String("key", key), logger.ErrorField(err))
		return "", false
	}
	return sum, true
}

// Set stores sum for key. Failures are logged and otherwise ignored.
func (c *ChecksumCache) Set(ctx context.Context, key, sum string) {
	if err := c.client.Set(ctx, checksumKeyPrefix+key, sum, c.ttl).Err(); err != nil {
		logger.Warn("checksum cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}
