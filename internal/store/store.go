package store

import (
	"context"
	"errors"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
)

var ErrNotFound = errors.New("store: not found")

// Store is the durable key/value area the client keeps its session in. It
// satisfies mindtree.Storage. Concrete drivers (sqlite) implement it.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetMany writes every pair in one transaction.
	SetMany(ctx context.Context, kv map[string]string) error

	// DeleteMany removes keys in one transaction. Missing keys are ignored.
	DeleteMany(ctx context.Context, keys ...string) error

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Keys lists the stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)

	ApplyMigrations() error

	// Close releases the underlying database.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

var _ mindtree.Storage = Store(nil)
