package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure DigestStore implements the interface.
var _ driven.DigestStore = (*DigestStore)(nil)

type digestKey struct {
	path     string
	digester string
}

// DigestStore is an in-memory implementation of driven.DigestStore.
type DigestStore struct {
	mu      sync.RWMutex
	records map[digestKey]domain.Digest
}

// NewDigestStore creates a new in-memory digest store.
func NewDigestStore() *DigestStore {
	return &DigestStore{records: make(map[digestKey]domain.Digest)}
}

// ListForPath returns all digest records for a file, ordered by digester
// name for determinism.
func (s *DigestStore) ListForPath(_ context.Context, path string) ([]domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Digest
	for k, rec := range s.records {
		if k.path == path {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Digester < out[j].Digester })
	return out, nil
}

// GetByPathAndDigester returns the record for one (file, digester) pair.
func (s *DigestStore) GetByPathAndDigester(_ context.Context, path, digester string) (*domain.Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[digestKey{path, digester}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// Create inserts a new record.
func (s *DigestStore) Create(_ context.Context, d *domain.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := digestKey{d.FilePath, d.Digester}
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyExists
	}
	rec := *d
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[key] = rec
	return nil
}

// Upsert creates or updates the record for (FilePath, Digester).
func (s *DigestStore) Upsert(_ context.Context, in domain.DigestInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := digestKey{in.FilePath, in.Digester}
	now := time.Now().UTC()
	rec, ok := s.records[key]
	if !ok {
		rec = domain.Digest{
			ID:        uuid.NewString(),
			FilePath:  in.FilePath,
			Digester:  in.Digester,
			CreatedAt: now,
		}
	}
	rec.Status = in.Status
	rec.Content = in.Content
	rec.Error = in.Error
	rec.UpdatedAt = now
	s.records[key] = rec
	return nil
}

// UpdateStatus transitions a record's status.
func (s *DigestStore) UpdateStatus(_ context.Context, path, digester string, status domain.DigestStatus, errMsg string, attemptsDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := digestKey{path, digester}
	rec, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Status = status
	if errMsg != "" {
		rec.Error = &errMsg
	} else {
		rec.Error = nil
	}
	rec.Attempts += attemptsDelta
	if rec.Attempts < 0 {
		rec.Attempts = 0
	}
	rec.UpdatedAt = time.Now().UTC()
	s.records[key] = rec
	return nil
}

// ResetForPath forces all records for a file back to pending.
func (s *DigestStore) ResetForPath(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for k, rec := range s.records {
		if k.path != path {
			continue
		}
		rec.Status = domain.DigestPending
		rec.Content = nil
		rec.Error = nil
		rec.Attempts = 0
		rec.UpdatedAt = now
		s.records[k] = rec
	}
	return nil
}

// ResetStaleInProgress forces in-progress records not updated since cutoff
// back to pending.
func (s *DigestStore) ResetStaleInProgress(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for k, rec := range s.records {
		if rec.Status == domain.DigestInProgress && rec.UpdatedAt.Before(cutoff) {
			rec.Status = domain.DigestPending
			rec.UpdatedAt = time.Now().UTC()
			s.records[k] = rec
			count++
		}
	}
	return count, nil
}

// FilesNeedingDigestion returns up to limit paths with runnable records.
func (s *DigestStore) FilesNeedingDigestion(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var paths []string
	for k, rec := range s.records {
		if seen[k.path] {
			continue
		}
		runnable := rec.Status == domain.DigestPending ||
			(rec.Status == domain.DigestFailed && rec.Attempts < domain.MaxDigestAttempts)
		if runnable {
			seen[k.path] = true
			paths = append(paths, k.path)
		}
	}
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

// DeleteForPath removes all records for a file.
func (s *DigestStore) DeleteForPath(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.path == path {
			delete(s.records, k)
		}
	}
	return nil
}
