package driven

import (
	"context"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// KeywordDocument is the payload stored in the keyword index.
type KeywordDocument struct {
	// DocumentID is the index key.
	DocumentID string

	// FilePath is the owning file.
	FilePath string

	// Name is the file's display name.
	Name string

	// Content is the combined searchable text.
	Content string

	// Summary and Tags are optional enrichment fields.
	Summary string
	Tags    string
}

// KeywordIndex provides full-text search operations.
type KeywordIndex interface {
	// Upsert adds or replaces a document in the index.
	Upsert(ctx context.Context, doc KeywordDocument) error

	// Delete removes a document from the index.
	Delete(ctx context.Context, documentID string) error

	// Search performs a keyword search and returns ranked hits.
	Search(ctx context.Context, query string, limit int) ([]domain.KeywordHit, error)
}

// VectorPoint is the payload stored in the vector index.
type VectorPoint struct {
	// DocumentID is the index key.
	DocumentID string

	// Embedding is the chunk's vector.
	Embedding []float32

	// FilePath, SourceType and Text are stored as payload for retrieval.
	FilePath   string
	SourceType string
	Text       string

	// ChunkIndex and ChunkCount locate the chunk within its source.
	ChunkIndex int
	ChunkCount int
}

// VectorIndex provides semantic similarity search operations.
type VectorIndex interface {
	// Upsert adds or replaces points in the index.
	Upsert(ctx context.Context, points []VectorPoint) error

	// Delete removes points from the index by document ID.
	Delete(ctx context.Context, documentIDs []string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error)
}
