package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript atomically increments a counter and sets its expiration on
// first increment. Running INCR, EXPIRE, and TTL as one script keeps other
// clients from interleaving commands, and the TTL it returns comes from the
// store's clock, so concurrent instances agree on the window regardless of
// local clock skew. Returns [count, ttl-seconds].
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`)

// Redis is the Redis-backed Store used when a shared store is configured.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds connection settings. All fields are populated by the
// application from its configuration; this package never reads environment
// variables.
type RedisConfig struct {
	// Addr is the server address, e.g. "localhost:6379".
	Addr string

	// Password for authentication (optional).
	Password string

	// DB is the database number.
	DB int

	// Prefix is prepended to every key to namespace this service's data
	// (default "geo:").
	Prefix string

	// DialTimeout, ReadTimeout, and WriteTimeout bound socket operations.
	// Zero values use the client defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedis creates a Redis store. It does not dial: reachability is probed
// by Ping and handled by the caller's fallback logic, so an unreachable
// server at startup is not a constructor error.
func NewRedis(config RedisConfig) *Redis {
	if config.Prefix == "" {
		config.Prefix = "geo:"
	}

	opts := &redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	}
	if config.DialTimeout > 0 {
		opts.DialTimeout = config.DialTimeout
	}
	if config.ReadTimeout > 0 {
		opts.ReadTimeout = config.ReadTimeout
	}
	if config.WriteTimeout > 0 {
		opts.WriteTimeout = config.WriteTimeout
	}

	return &Redis{
		client: redis.NewClient(opts),
		prefix: config.Prefix,
	}
}

// Get returns the value for key, or ErrMiss if absent.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// Set writes value under key with the given TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// MSet writes all pairs with the given TTL in a single pipelined round trip.
func (r *Redis) MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for key, value := range pairs {
		pipe.Set(ctx, r.prefix+key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mset failed: %w", err)
	}
	return nil
}

// Increment atomically increments the counter for key via the Lua script.
func (r *Redis) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := incrScript.Run(ctx, r.client, []string{r.prefix + key}, int(window.Seconds())).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis increment failed: %w", err)
	}

	if len(result) != 2 {
		return 0, 0, fmt.Errorf("unexpected result length: got %d, want 2", len(result))
	}
	count, ok := result[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected type for count: %T", result[0])
	}
	ttlSeconds, ok := result[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected type for ttl: %T", result[1])
	}

	return count, time.Duration(ttlSeconds) * time.Second, nil
}

// Ping reports whether the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the client connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
