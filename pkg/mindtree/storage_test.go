package mindtree

import (
	"context"
	"errors"
	"sync"
)

// recordingStorage wraps MemoryStorage, recording batched writes and
// optionally failing them.
type recordingStorage struct {
	*MemoryStorage

	mu      sync.Mutex
	sets    []map[string]string
	deletes [][]string
	clears  int
	failSet error
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{MemoryStorage: NewMemoryStorage()}
}

func (s *recordingStorage) SetMany(ctx context.Context, kv map[string]string) error {
	s.mu.Lock()
	s.sets = append(s.sets, kv)
	fail := s.failSet
	s.mu.Unlock()
	if fail != nil {
		return fail
	}
	return s.MemoryStorage.SetMany(ctx, kv)
}

func (s *recordingStorage) DeleteMany(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, keys)
	s.mu.Unlock()
	return s.MemoryStorage.DeleteMany(ctx, keys...)
}

func (s *recordingStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return s.MemoryStorage.Clear(ctx)
}

var errDiskFull = errors.New("disk full")
