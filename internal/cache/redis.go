package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"todo-api/internal/config"
	"todo-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SharedNamespace is used by every replica of a backend whose data outlives
// the process (postgres).
const SharedNamespace = "shared"

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
// It returns nil when REDIS_URL is unset or Redis is unreachable.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		if !cfg.CacheEnabled() {
			return
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// NamespaceFor returns the key namespace for a store backend. An in-memory
// store dies with its process, so each process gets a namespace of its own.
func NamespaceFor(backend string) string {
	if backend == config.BackendPostgres {
		return SharedNamespace
	}
	return "proc-" + uuid.NewString()
}

// Cache stores rendered read results under a generation number. Invalidate
// bumps the generation, so entries written for an older generation are never
// read again and expire through their TTL. A nil *Cache is a permanent miss.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	ns  string
}

func New(rdb *redis.Client, ttl time.Duration, namespace string) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl, ns: namespace}
}

// Generation returns the current generation; callers capture it before reading
// the store. ok is false when the generation is unknown and the cache must be
// bypassed. A missing counter is seeded from the wall clock, so it starts above
// any generation it had before it was evicted.
func (c *Cache) Generation(ctx context.Context) (gen int64, ok bool) {
	if c == nil {
		return 0, false
	}
	key := c.generationKey()
	n, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.rdb.SetNX(ctx, key, time.Now().UnixNano(), 0).Err(); err != nil {
			logger.Debug(ctx, "Redis seed generation failed", "error", err)
			return 0, false
		}
		n, err = c.rdb.Get(ctx, key).Int64()
	}
	if err != nil {
		logger.Debug(ctx, "Redis get generation failed", "error", err)
		return 0, false
	}
	return n, true
}

// Get reads a cached value. Returns (nil, false) on miss or error.
func (c *Cache) Get(ctx context.Context, gen int64, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get failed", "error", err, "key", key)
		return nil, false
	}
	return b, true
}

// Set writes a value computed while gen was current.
func (c *Cache) Set(ctx context.Context, gen int64, key string, b []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.entryKey(gen, key), b, c.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set failed", "error", err, "key", key)
	}
}

// bumpGeneration increments the counter, seeding it first when it is missing
// so an evicted counter never restarts at 1.
var bumpGeneration = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("SET", KEYS[1], ARGV[1])
end
return redis.call("INCR", KEYS[1])
`)

// Invalidate starts a new generation so the next read goes to the store.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := bumpGeneration.Run(ctx, c.rdb, []string{c.generationKey()}, time.Now().UnixNano()).Err(); err != nil {
		logger.Error(ctx, "Redis invalidate failed", "error", err)
	}
}

// Ping reports whether Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("cache not configured")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) generationKey() string {
	return "todos:" + c.ns + ":generation"
}

func (c *Cache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("todos:%s:g%d:%s", c.ns, gen, key)
}
