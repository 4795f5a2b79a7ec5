package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dispatchsim/internal/config"
	"dispatchsim/internal/logging"

	"github.com/go-redis/redis/v8"
)

// RedisClient wraps redis.Client with logging and JSON convenience methods.
// Used by the optional distance cache (internal/distance) when
// config.RedisConfig.Host is set; the cache degrades to an in-process
// map when it is not.
type RedisClient struct {
	*redis.Client
	config *config.RedisConfig
	logger *logging.Logger
}

// NewRedisConnection creates a new Redis client connection
func NewRedisConnection(cfg *config.RedisConfig, logger *logging.Logger) (*RedisClient, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	redisClient := &RedisClient{
		Client: rdb,
		config: cfg,
		logger: logger,
	}

	logger.WithComponent("redis").Info("Redis connection established")

	return redisClient, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	r.logger.WithComponent("redis").Info("Closing Redis connection")
	return r.Client.Close()
}

// Ping checks if the Redis connection is alive
func (r *RedisClient) Ping(ctx context.Context) error {
	start := time.Now()
	err := r.Client.Ping(ctx).Err()
	duration := time.Since(start).Milliseconds()

	r.logger.LogDatabaseOperation("ping", "redis", duration, err, nil)
	return err
}

// Set sets a key-value pair with optional expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	start := time.Now()
	err := r.Client.Set(ctx, key, value, expiration).Err()
	duration := time.Since(start).Milliseconds()

	r.logger.LogDatabaseOperation("set", "redis", duration, err, logging.Fields{
		"key":        key,
		"expiration": expiration,
	})

	return err
}

// Get retrieves a value by key
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	result, err := r.Client.Get(ctx, key).Result()
	duration := time.Since(start).Milliseconds()

	r.logger.LogDatabaseOperation("get", "redis", duration, err, logging.Fields{
		"key": key,
	})

	return result, err
}

// Del deletes one or more keys
func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := r.Client.Del(ctx, keys...).Err()
	duration := time.Since(start).Milliseconds()

	r.logger.LogDatabaseOperation("del", "redis", duration, err, logging.Fields{
		"keys": keys,
	})

	return err
}

// SetJSON sets a JSON-encoded value
func (r *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.Set(ctx, key, data, expiration)
}

// GetJSON gets and JSON-decodes a value
func (r *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

// IsRedisConnectionError checks if an error is a connection-related error
func IsRedisConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errorMsg := err.Error()
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"connection lost",
		"EOF",
		"broken pipe",
	}

	for _, connErr := range connectionErrors {
		if contains(errorMsg, connErr) {
			return true
		}
	}

	return false
}

func contains(s, substr string) bool {
	return len(substr) == 0 || (len(s) >= len(substr) && indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
