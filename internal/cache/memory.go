package cache

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// InMemoryCache backs MOCKS runs and tests. Entries last as long as the process.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ ListCache = (*InMemoryCache)(nil)

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{entries: map[string][]byte{}}
}

func (c *InMemoryCache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}

func (c *InMemoryCache) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := c.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *InMemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *InMemoryCache) Put(_ context.Context, key, value string, opts PutOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.entries[key]; taken && opts.Condition == PutIfNoneMatch {
		return ErrAlreadyExists
	}
	c.entries[key] = []byte(value)
	return nil
}

// List returns the keys under prefix with the prefix removed, sorted.
func (c *InMemoryCache) List(_ context.Context, prefix string) ([]string, error) {
	c.mu.RLock()
	all := slices.Sorted(maps.Keys(c.entries))
	c.mu.RUnlock()
	return lo.FilterMap(all, func(key string, _ int) (string, bool) {
		return strings.CutPrefix(key, prefix)
	}), nil
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
