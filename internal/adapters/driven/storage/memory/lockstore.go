package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure LockStore implements the interface.
var _ driven.LockStore = (*LockStore)(nil)

// LockStore is an in-memory implementation of driven.LockStore.
type LockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLockStore creates a new in-memory lock store.
func NewLockStore() *LockStore {
	return &LockStore{locks: make(map[string]time.Time)}
}

// IsLocked reports whether a lock exists for the path.
func (s *LockStore) IsLocked(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.locks[path]
	return ok, nil
}

// Acquire atomically creates the lock.
func (s *LockStore) Acquire(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[path]; ok {
		return domain.ErrLockHeld
	}
	s.locks[path] = time.Now().UTC()
	return nil
}

// Release removes the lock. Releasing an absent lock is not an error.
func (s *LockStore) Release(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, path)
	return nil
}

// CleanupStale removes locks created before cutoff.
func (s *LockStore) CleanupStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for path, created := range s.locks {
		if created.Before(cutoff) {
			delete(s.locks, path)
			count++
		}
	}
	return count, nil
}
