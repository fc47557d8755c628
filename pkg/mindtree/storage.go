package mindtree

import (
	"context"
	"maps"
	"sync"
)

// Fixed keys of the persisted client state.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyIdentity     = "identity"
)

// Storage is the durable key/value area the client keeps its session in.
// SetMany and DeleteMany must apply all keys or none.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, kv map[string]string) error
	DeleteMany(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}

// MemoryStorage is a process-local Storage, used by default and in tests.
type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetMany(_ context.Context, kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.m, kv)
	return nil
}

func (s *MemoryStorage) DeleteMany(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

func (s *MemoryStorage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
	return nil
}

// Snapshot returns a copy of every stored key.
func (s *MemoryStorage) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.m)
}
