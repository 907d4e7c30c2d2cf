// Package memory provides in-memory store implementations, used by tests
// and by ephemeral runs that do not need persistence.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]domain.FileRecord
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]domain.FileRecord)}
}

// Put stores or replaces a file record. Not part of the driven interface;
// tests and the watcher use it to feed records in.
func (s *FileStore) Put(f domain.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[f.Path] = f
}

// Remove drops a file record.
func (s *FileStore) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
}

// GetByPath retrieves a file record by its relative path.
func (s *FileStore) GetByPath(_ context.Context, path string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

// ListInbox returns all non-folder files under the inbox root.
func (s *FileStore) ListInbox(_ context.Context) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FileRecord
	for _, f := range s.files {
		if f.IsFolder {
			continue
		}
		if f.Path == "inbox" || strings.HasPrefix(f.Path, "inbox/") {
			out = append(out, f)
		}
	}
	return out, nil
}
