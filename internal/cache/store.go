// Package cache holds the key/value stores consulted by the caching layer,
// together with key derivation and payload encoding.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

// Store is the minimal get / set-with-ttl protocol the caching layer needs.
// Delete is used to drop entries that can no longer be decoded.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by stores able to drop every key under a prefix.
type Purger interface {
	Purge(ctx context.Context, prefix string) (int, error)
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NopStore never holds anything. It backs the "none" cache backend.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Delete(context.Context, string) error { return nil }
