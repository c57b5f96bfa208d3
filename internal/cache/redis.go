package cache

import (
	"context"
	"fmt"

	"moviesync/internal/config"
	"moviesync/internal/logger"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// Init connects to redis. The cache only spares repeat detail fetches, so a
// connection failure is reported, not fatal.
func Init(ctx context.Context) error {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisClient = client
	logger.Get().Info("Connection to Redis successful")
	return nil
}

// Get returns the shared client, nil when Init failed or was never called.
func Get() *redis.Client {
	return redisClient
}

func Close() {
	if redisClient != nil {
		redisClient.Close()
	}
}
