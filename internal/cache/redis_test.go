package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setupRedisTest(t *testing.T) (*Redis, func()) {
	t.Helper()

	store := NewRedis(RedisConfig{
		Addr:   "localhost:6379",
		DB:     15,
		Prefix: "test:geo:",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		t.Skip("Redis not available:", err)
	}

	cleanup := func() {
		ctx := context.Background()
		iter := store.client.Scan(ctx, 0, store.prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			store.client.Del(ctx, iter.Val())
		}
		store.Close()
	}

	return store, cleanup
}

func TestRedisGetMiss(t *testing.T) {
	store, cleanup := setupRedisTest(t)
	defer cleanup()

	if _, err := store.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestRedisSetGet(t *testing.T) {
	store, cleanup := setupRedisTest(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get = %q", got)
	}
}

func TestRedisMSet(t *testing.T) {
	store, cleanup := setupRedisTest(t)
	defer cleanup()
	ctx := context.Background()

	pairs := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"c": []byte("3"),
	}
	if err := store.MSet(ctx, pairs, time.Minute); err != nil {
		t.Fatalf("MSet: %v", err)
	}
	for key, want := range pairs {
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if string(got) != string(want) {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}

	if err := store.MSet(ctx, nil, time.Minute); err != nil {
		t.Errorf("empty MSet should be a no-op, got %v", err)
	}
}

func TestRedisIncrement(t *testing.T) {
	store, cleanup := setupRedisTest(t)
	defer cleanup()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := store.Increment(ctx, "client", time.Minute)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if count != want {
			t.Errorf("count = %d, want %d", count, want)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("ttl = %v, want (0, 1m]", ttl)
		}
	}
}

func TestRedisIncrementIsolatedKeys(t *testing.T) {
	store, cleanup := setupRedisTest(t)
	defer cleanup()
	ctx := context.Background()

	if _, _, err := store.Increment(ctx, "a", time.Minute); err != nil {
		t.Fatal(err)
	}
	count, _, err := store.Increment(ctx, "b", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count for fresh key = %d, want 1", count)
	}
}

func TestRedisUnreachable(t *testing.T) {
	store := NewRedis(RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := store.Ping(ctx); err == nil {
		t.Error("expected ping to fail against closed port")
	}
	if _, err := store.Get(ctx, "k"); err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("expected a transport error, got %v", err)
	}
}
