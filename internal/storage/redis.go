package storage

import (
	"context"
	"time"

	"dispatch-service/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis builds the redis client used for the link cache, realtime
// counters and rate limiting. A ping failure is logged but not fatal: every
// hot-path use of redis degrades to the database.
func ConnectRedis(cfg *config.RedisConfig, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
	} else {
		log.Info("redis connection established", zap.String("addr", cfg.Addr))
	}
	return client
}
