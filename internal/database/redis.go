package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
)

// blockingConsumers is the number of connections held by BLPOP workers;
// the pool keeps room for them on top of request traffic.
const blockingConsumers = 2

// NewRedisClient opens a client and waits until Redis answers a ping.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opt.PoolSize > 0 {
		opt.PoolSize += blockingConsumers
	}

	rdb := redis.NewClient(opt)

	err = connectWithRetry(ctx, cfg.ConnectRetries, log, "redis", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}
