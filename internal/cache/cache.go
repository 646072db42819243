// Package cache is a small key/value layer with memory, file and Azure blob backends.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrAlreadyExists = errors.New("cache entry already exists")
)

type PutCondition int

const (
	PutUnconditional PutCondition = iota
	PutIfNoneMatch
)

type PutOptions struct {
	Condition PutCondition
}

func Unconditional() PutOptions {
	return PutOptions{Condition: PutUnconditional}
}

func IfNoneMatch() PutOptions {
	return PutOptions{Condition: PutIfNoneMatch}
}

type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key, value string, opts PutOptions) error
}

// ListCache is a Cache that can enumerate keys under a prefix.
type ListCache interface {
	Cache
	List(ctx context.Context, prefix string) ([]string, error)
}

const probeKey = "ready/probe"

// Probe reports whether the backend answers at all. A missing probe key is the normal case.
func Probe(store Cache) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := store.Exists(ctx, probeKey); err != nil {
			return fmt.Errorf("cache unavailable: %w", err)
		}
		return nil
	}
}
