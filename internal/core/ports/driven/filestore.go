package driven

import (
	"context"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// FileStore provides read access to file records. The records themselves
// are owned and written by the file-discovery layer.
type FileStore interface {
	// GetByPath retrieves a file record by its relative path.
	// Returns domain.ErrNotFound when the file is unknown.
	GetByPath(ctx context.Context, path string) (*domain.FileRecord, error)

	// ListInbox returns all non-folder files under the inbox root.
	// Used by the startup backfill to ensure digest placeholders exist.
	ListInbox(ctx context.Context) ([]domain.FileRecord, error)
}
