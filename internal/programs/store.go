package programs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"programfinder/internal/config"
)

// Store holds the current catalog and swaps it on reload.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
	load    func(context.Context) (*Catalog, error)
}

// New loads the configured catalog.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	return NewStore(ctx, func(ctx context.Context) (*Catalog, error) {
		return source(ctx, cfg)
	})
}

// NewStore builds a store around an arbitrary loader.
func NewStore(ctx context.Context, load func(context.Context) (*Catalog, error)) (*Store, error) {
	c, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	slog.InfoContext(ctx, "catalog loaded", "programs", c.Len(), "version", c.Version())
	return &Store{current: c, load: load}, nil
}

func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the source and reports whether the contents changed.
// A failed reload keeps the previous catalog.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	c, err := s.load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reload catalog: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Version() == s.current.Version() {
		return false, nil
	}
	slog.InfoContext(ctx, "catalog changed", "programs", c.Len(), "old_version", s.current.Version(), "version", c.Version())
	s.current = c
	return true, nil
}

// Ready reports whether a catalog is loaded.
func (s *Store) Ready(_ context.Context) error {
	if s.Current() == nil {
		return fmt.Errorf("catalog not loaded")
	}
	return nil
}
