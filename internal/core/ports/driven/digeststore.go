package driven

import (
	"context"
	"time"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// DigestStore persists digest records. All writes are single-row upserts;
// the store's own atomicity guarantees are the only transactional boundary
// the pipeline relies on.
type DigestStore interface {
	// ListForPath returns all digest records for a file.
	ListForPath(ctx context.Context, path string) ([]domain.Digest, error)

	// GetByPathAndDigester returns the record for one (file, digester)
	// pair. Returns domain.ErrNotFound when absent.
	GetByPathAndDigester(ctx context.Context, path, digester string) (*domain.Digest, error)

	// Create inserts a new record. Returns domain.ErrAlreadyExists when a
	// record for the (file, digester) pair exists.
	Create(ctx context.Context, d *domain.Digest) error

	// Upsert creates or updates the record for (FilePath, Digester).
	Upsert(ctx context.Context, in domain.DigestInput) error

	// UpdateStatus transitions a record's status, recording the error
	// message (may be empty) and adjusting the attempts counter by delta.
	UpdateStatus(ctx context.Context, path, digester string, status domain.DigestStatus, errMsg string, attemptsDelta int) error

	// ResetForPath forces all records for a file back to pending with
	// cleared content, error and attempts.
	ResetForPath(ctx context.Context, path string) error

	// ResetStaleInProgress forces in-progress records not updated since
	// cutoff back to pending. Returns the number of records repaired.
	ResetStaleInProgress(ctx context.Context, cutoff time.Time) (int, error)

	// FilesNeedingDigestion returns up to limit file paths that have at
	// least one pending record, or a failed record with attempts below
	// the retry cap.
	FilesNeedingDigestion(ctx context.Context, limit int) ([]string, error)

	// DeleteForPath removes all records for a file.
	DeleteForPath(ctx context.Context, path string) error
}

// LockStore provides per-file mutual exclusion. A lock's existence means a
// worker currently owns the file.
type LockStore interface {
	// IsLocked reports whether a lock exists for the path.
	IsLocked(ctx context.Context, path string) (bool, error)

	// Acquire atomically creates the lock. Returns domain.ErrLockHeld when
	// the lock already exists.
	Acquire(ctx context.Context, path string) error

	// Release removes the lock. Releasing an absent lock is not an error.
	Release(ctx context.Context, path string) error

	// CleanupStale removes locks created before cutoff, recovering from
	// ungraceful shutdowns. Returns the number of locks cleared.
	CleanupStale(ctx context.Context, cutoff time.Time) (int, error)
}

// ChunkStore persists chunk bookkeeping rows for idempotent vector
// re-indexing.
type ChunkStore interface {
	// ReplaceForFileSource deletes existing rows for (path, sourceType)
	// and inserts the given chunks.
	ReplaceForFileSource(ctx context.Context, path, sourceType string, chunks []domain.Chunk) error

	// ListForFile returns all chunk rows for a file, ordered by source
	// type then index.
	ListForFile(ctx context.Context, path string) ([]domain.Chunk, error)

	// DeleteForFile removes all chunk rows for a file and returns the
	// document IDs that were removed, so callers can delete the
	// corresponding index entries.
	DeleteForFile(ctx context.Context, path string) ([]string, error)
}
