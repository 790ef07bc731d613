package cache

import (
	"context"
	"sync"
	"time"
)

type memoryValue struct {
	data       []byte
	expiration time.Time
}

type memoryCounter struct {
	count      int64
	expiration time.Time
}

// Memory is an in-process Store. It backs the rate limiter's local-fallback
// counters and stands in for Redis in tests. It never coordinates across
// instances: in fallback mode every process enforces its own quota, a
// documented degradation.
type Memory struct {
	mu       sync.RWMutex
	values   map[string]memoryValue
	counters map[string]*memoryCounter
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemory creates an in-process store. A background goroutine removes
// expired entries once a minute; call Close to stop it.
func NewMemory() *Memory {
	m := &Memory{
		values:   make(map[string]memoryValue),
		counters: make(map[string]*memoryCounter),
		stopCh:   make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Get returns the value for key, or ErrMiss if absent or expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok || (!v.expiration.IsZero() && time.Now().After(v.expiration)) {
		return nil, ErrMiss
	}
	return v.data, nil
}

// Set writes value under key. A zero TTL means no expiry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.values[key] = memoryValue{data: value, expiration: exp}
	return nil
}

// MSet writes all pairs under a single lock acquisition.
func (m *Memory) MSet(_ context.Context, pairs map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	for key, value := range pairs {
		m.values[key] = memoryValue{data: value, expiration: exp}
	}
	return nil
}

// Increment increments the counter for key, starting a fresh window if the
// previous one expired. The write lock makes the operation atomic.
func (m *Memory) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c, ok := m.counters[key]
	if !ok || now.After(c.expiration) {
		m.counters[key] = &memoryCounter{count: 1, expiration: now.Add(window)}
		return 1, window, nil
	}

	c.count++
	ttl := max(0, time.Until(c.expiration))
	return c.count, ttl, nil
}

// Ping always succeeds: the store is the process itself.
func (m *Memory) Ping(context.Context) error { return nil }

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	return nil
}

// runCleanup removes all expired entries. Exposed to tests so cleanup can be
// exercised without waiting for the ticker.
func (m *Memory) runCleanup() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, v := range m.values {
		if !v.expiration.IsZero() && now.After(v.expiration) {
			delete(m.values, key)
		}
	}
	for key, c := range m.counters {
		if now.After(c.expiration) {
			delete(m.counters, key)
		}
	}
}

func (m *Memory) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runCleanup()
		case <-m.stopCh:
			return
		}
	}
}
