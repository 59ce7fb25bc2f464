package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

type backend interface {
	List(ctx context.Context) ([]domain.Todo, error)
	Create(ctx context.Context, title string) (domain.Todo, error)
	Update(ctx context.Context, id string, upd domain.TodoUpdate) (domain.Todo, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

const listCacheKey = "todos:list"

// Cache wraps a Storage instance with Redis-backed caching for the list
// read. Every successful write delegates to the backing store first and
// then evicts the cached list, so a committed write is never followed by
// a stale read from here.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis
// client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) List(ctx context.Context) ([]domain.Todo, error) {
	if todos, ok := c.loadList(ctx); ok {
		return todos, nil
	}
	todos, err := c.base.List(ctx)
	if err != nil {
		return nil, err
	}
	c.storeList(ctx, todos)
	return todos, nil
}

func (c *Cache) Create(ctx context.Context, title string) (domain.Todo, error) {
	todo, err := c.base.Create(ctx, title)
	if err != nil {
		return domain.Todo{}, err
	}
	c.evict(ctx)
	return todo, nil
}

func (c *Cache) Update(ctx context.Context, id string, upd domain.TodoUpdate) (domain.Todo, error) {
	todo, err := c.base.Update(ctx, id, upd)
	if err != nil {
		return domain.Todo{}, err
	}
	c.evict(ctx)
	return todo, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.base.Ping(ctx)
}

func (c *Cache) loadList(ctx context.Context) ([]domain.Todo, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, listCacheKey).Err()
		}
		return nil, false
	}
	var todos []domain.Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		_ = c.redis.Del(ctx, listCacheKey).Err()
		return nil, false
	}
	return todos, true
}

func (c *Cache) storeList(ctx context.Context, todos []domain.Todo) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(todos)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, listCacheKey, data, c.ttl).Err(); err != nil {
		log.WithError(err).Debug("failed to store list cache entry")
	}
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, listCacheKey).Err(); err != nil {
		log.WithError(err).Warn("failed to evict list cache entry")
	}
}
