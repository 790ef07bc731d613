package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryGetMiss(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	if _, err := m.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after expiry, got %v", err)
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	m.runCleanup()
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Errorf("zero-TTL entry should survive cleanup, got %v", err)
	}
}

func TestMemoryMSet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	pairs := map[string][]byte{}
	for i := 0; i < 10; i++ {
		pairs[fmt.Sprintf("k%d", i)] = []byte(fmt.Sprintf("v%d", i))
	}
	if err := m.MSet(ctx, pairs, time.Minute); err != nil {
		t.Fatalf("MSet: %v", err)
	}
	for key, want := range pairs {
		got, err := m.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if string(got) != string(want) {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestMemoryIncrement(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := m.Increment(ctx, "client", time.Minute)
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

func TestMemoryIncrementWindowReset(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	if _, _, err := m.Increment(ctx, "client", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	count, _, err := m.Increment(ctx, "client", 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after window = %d, want 1", count)
	}
}

func TestMemoryIncrementConcurrent(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.Increment(ctx, "client", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := m.Increment(ctx, "client", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != goroutines+1 {
		t.Errorf("count = %d, want %d", count, goroutines+1)
	}
}

func TestMemoryCleanup(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "expired", []byte("v"), time.Millisecond)
	m.Set(ctx, "live", []byte("v"), time.Minute)
	m.Increment(ctx, "counter", time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	m.runCleanup()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.values["expired"]; ok {
		t.Error("expired value survived cleanup")
	}
	if _, ok := m.values["live"]; !ok {
		t.Error("live value removed by cleanup")
	}
	if _, ok := m.counters["counter"]; ok {
		t.Error("expired counter survived cleanup")
	}
}

func TestMemoryCloseIdempotent(t *testing.T) {
	m := NewMemory()
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}
