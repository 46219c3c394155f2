package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSnapshotCache stores snapshots as JSON under {prefix}{id}:project and
// {prefix}{id}:categories. It is shared by every service instance.
type RedisSnapshotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a cache over an existing client
func NewRedisSnapshotCache(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisSnapshotCache) projectKey(id uuid.UUID) string {
	return c.prefix + id.String() + ":project"
}

func (c *RedisSnapshotCache) categoriesKey(id uuid.UUID) string {
	return c.prefix + id.String() + ":categories"
}

func (c *RedisSnapshotCache) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, bool, error) {
	var p project.Project
	ok, err := c.get(ctx, c.projectKey(id), &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (c *RedisSnapshotCache) SetProject(ctx context.Context, p *project.Project) error {
	return c.set(ctx, c.projectKey(p.ID), p)
}

func (c *RedisSnapshotCache) GetCategories(ctx context.Context, id uuid.UUID) ([]project.Category, bool, error) {
	var rows []project.Category
	ok, err := c.get(ctx, c.categoriesKey(id), &rows)
	if !ok || err != nil {
		return nil, false, err
	}
	return cloneRows(rows), true, nil
}

func (c *RedisSnapshotCache) SetCategories(ctx context.Context, id uuid.UUID, rows []project.Category) error {
	return c.set(ctx, c.categoriesKey(id), cloneRows(rows))
}

func (c *RedisSnapshotCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.projectKey(id), c.categoriesKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}

func (c *RedisSnapshotCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// a payload written by an older layout is treated as a miss
		return false, nil
	}
	return true, nil
}

func (c *RedisSnapshotCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

var _ SnapshotCache = (*RedisSnapshotCache)(nil)
