package driving

import (
	"context"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// DigestWorker is the background pipeline's control surface. Requests are
// fire-and-forget; outcomes are observable on the event channel.
type DigestWorker interface {
	// Start launches the worker loop and supervisor. Blocks until the
	// context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the worker down cooperatively, allowing the in-flight
	// iteration a bounded grace period.
	Stop() error

	// RequestDigest asks the worker to process one file, used right after
	// an upload. Non-blocking; dropped when the request queue is full.
	RequestDigest(path string, opts domain.ProcessOptions)

	// OnFileChange feeds a file-discovery notification into the worker.
	OnFileChange(path string, isNew, contentChanged bool)

	// Events returns the channel carrying worker lifecycle events.
	Events() <-chan domain.Event
}

// Coordinator runs the applicable digesters for one file.
type Coordinator interface {
	// EnsureAllDigesters creates pending placeholder records for every
	// registered digester that applies to the file. Idempotent.
	EnsureAllDigesters(ctx context.Context, path string) error

	// ProcessFile runs the applicable digesters for the file in
	// registration order. Per-digester failures are recorded on their
	// records and do not abort sibling digesters. The returned success
	// flag is true when no digest for the file is failed afterwards.
	ProcessFile(ctx context.Context, path string, opts domain.ProcessOptions) (bool, error)
}

// SearchService performs hybrid search over indexed content.
type SearchService interface {
	// Search fuses keyword and vector results for the query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.FusedResult, error)
}

// Ingestor pushes a file's derived content into the search indexes.
type Ingestor interface {
	// IngestFile chunks the file's content sources and upserts them into
	// the vector and keyword indexes.
	IngestFile(ctx context.Context, path string) error

	// RemoveFile deletes the file's entries from both indexes.
	RemoveFile(ctx context.Context, path string) error
}
