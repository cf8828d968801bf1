package database

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to addr. It returns nil without error when addr is
// empty or the server is unreachable; callers fall back to in-process locks.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) *redis.Client {
	if addr == "" {
		logger.Info("redis not configured, using in-process locks")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-process locks", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("connected to redis", zap.String("addr", addr), zap.Int("db", db))
	return rdb
}
