package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantfold/equilens-ai-go/internal/config"
)

const redisConnectTimeout = 5 * time.Second

// RedisClient wraps the shared Redis connection backing the analysis cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedisConnection opens a Redis client and verifies it with a ping.
func NewRedisConnection(cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host": cfg.Host,
		"db":   cfg.DB,
	}).Info("Connected to Redis")

	return &RedisClient{Client: client}, nil
}

// HealthCheck pings the server.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close releases the connection pool. Safe on a nil client.
func (r *RedisClient) Close() {
	if r.Client != nil {
		if err := r.Client.Close(); err != nil {
			logrus.WithError(err).Warn("Redis close failed")
		}
	}
}
