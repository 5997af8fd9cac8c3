package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aminimarket/marketplace-backend/config"
	"github.com/aminimarket/marketplace-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

const dispatchLockKey = "onboarding:dispatch-lock"

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// AcquireDispatchLock takes the cross-process credential dispatch lock.
// Two dispatchers (e.g. overlapping cron triggers) must never drain the same
// queue artifact concurrently. Returns false when another process holds it.
func AcquireDispatchLock(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	ok, err := client.SetNX(ctx, dispatchLockKey, holder, ttl).Result()
	if err != nil {
		logger.Error("Failed to acquire dispatch lock", err, nil)
		return false, err
	}

	if !ok {
		current, _ := client.Get(ctx, dispatchLockKey).Result()
		logger.Warn("Dispatch lock already held", map[string]interface{}{
			"holder": current,
		})
	}
	return ok, nil
}

// ReleaseDispatchLock releases the dispatch lock if this holder owns it
func ReleaseDispatchLock(ctx context.Context, holder string) error {
	current, err := client.Get(ctx, dispatchLockKey).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != holder {
		// Lock was taken over after expiry, leave it alone
		return nil
	}
	return client.Del(ctx, dispatchLockKey).Err()
}
