package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

type chunkSourceKey struct {
	path       string
	sourceType string
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[chunkSourceKey][]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[chunkSourceKey][]domain.Chunk)}
}

// ReplaceForFileSource deletes existing rows for (path, sourceType) and
// inserts the given chunks.
func (s *ChunkStore) ReplaceForFileSource(_ context.Context, path, sourceType string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chunkSourceKey{path, sourceType}
	if len(chunks) == 0 {
		delete(s.chunks, key)
		return nil
	}
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)
	s.chunks[key] = copied
	return nil
}

// ListForFile returns all chunk rows for a file, ordered by source type
// then index.
func (s *ChunkStore) ListForFile(_ context.Context, path string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for key, chs := range s.chunks {
		if key.path == path {
			out = append(out, chs...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceType != out[j].SourceType {
			return out[i].SourceType < out[j].SourceType
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// DeleteForFile removes all chunk rows for a file and returns the removed
// document IDs.
func (s *ChunkStore) DeleteForFile(_ context.Context, path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for key, chs := range s.chunks {
		if key.path != path {
			continue
		}
		for i := range chs {
			ids = append(ids, chs[i].DocumentID())
		}
		delete(s.chunks, key)
	}
	sort.Strings(ids)
	return ids, nil
}
