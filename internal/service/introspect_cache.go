package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// IntrospectMissCache remembers subjects that recently resolved to no
// account, so a burst of well-formed tokens for unknown subjects does not
// hammer the store. Entries expire on their own; Invalidate flushes the
// cache after account creation so a fresh signup is visible immediately.
type IntrospectMissCache interface {
	Get(ctx context.Context, subject string) (bool, error)
	Set(ctx context.Context, subject string, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopMissCache struct{}

func NewNoopMissCache() *NoopMissCache { return &NoopMissCache{} }

func (c *NoopMissCache) Get(context.Context, string) (bool, error) { return false, nil }

func (c *NoopMissCache) Set(context.Context, string, time.Duration) error { return nil }

func (c *NoopMissCache) Invalidate(context.Context) error { return nil }

type InMemoryMissCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewInMemoryMissCache() *InMemoryMissCache {
	return &InMemoryMissCache{entries: make(map[string]time.Time)}
}

func (c *InMemoryMissCache) Get(_ context.Context, subject string) (bool, error) {
	now := time.Now().UTC()
	c.mu.RLock()
	expiresAt, ok := c.entries[missCacheKey(subject)]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		c.mu.Lock()
		delete(c.entries, missCacheKey(subject))
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *InMemoryMissCache) Set(_ context.Context, subject string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[missCacheKey(subject)] = time.Now().UTC().Add(ttl)
	return nil
}

func (c *InMemoryMissCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]time.Time)
	return nil
}

func missCacheKey(subject string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(subject)))
	return hex.EncodeToString(sum[:])
}
