package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDependencyNotReady indicates a digester needs another digester's
	// completed output that is not available yet. The failure is retryable:
	// the record is marked failed and a later pass re-runs it once the
	// dependency completes.
	ErrDependencyNotReady = errors.New("dependency not ready")

	// ErrLockHeld indicates another worker currently owns the file.
	// Not a failure; the caller defers to a later iteration.
	ErrLockHeld = errors.New("processing lock held")

	// ErrCompletionUnavailable indicates the structured-completion service
	// is not configured. Digesters requiring it fail their records.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector ingestion and semantic search are disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrKeywordIndexUnavailable indicates the keyword index is not
	// configured. Full-text search is disabled.
	ErrKeywordIndexUnavailable = errors.New("keyword index unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured. Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrVisionUnavailable indicates the vision service is not configured.
	ErrVisionUnavailable = errors.New("vision service unavailable")

	// ErrSpeechUnavailable indicates the speech service is not configured.
	ErrSpeechUnavailable = errors.New("speech service unavailable")
)
