package db

import (
	"timerhub/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds the pub/sub client backing the per-user event channel.
// Returns nil when no address is configured; the stream hub then fans out to
// local subscribers only.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
