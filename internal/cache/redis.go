package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tokenpulse/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	lastRunKey = "pipeline:last_run"
	lastRunTTL = 7 * 24 * time.Hour
)

// NewClient connects to Redis and verifies the connection. Accepts both
// a bare host:port and a redis:// URL. The client is created once at
// process start and injected into consumers.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Println("Connected to Redis")
	return client, nil
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RunStatusCache keeps the result of the most recent pipeline run so the
// status endpoint survives process restarts.
type RunStatusCache struct {
	redis  RedisClient
	tracer trace.Tracer
}

func NewRunStatusCache(redisClient RedisClient, tracer trace.Tracer) *RunStatusCache {
	return &RunStatusCache{redis: redisClient, tracer: tracer}
}

func (c *RunStatusCache) SetLastRun(ctx context.Context, result domain.RunResult) error {
	_, span := c.tracer.Start(ctx, "run-status-cache.set")
	defer span.End()

	if c.redis == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, lastRunKey, data, lastRunTTL).Err()
}

// GetLastRun returns the cached result, or nil when no run has been
// recorded yet.
func (c *RunStatusCache) GetLastRun(ctx context.Context) (*domain.RunResult, error) {
	_, span := c.tracer.Start(ctx, "run-status-cache.get")
	defer span.End()

	if c.redis == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
