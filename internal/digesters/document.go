package digesters

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// DocToMarkdown converts office documents and PDFs to markdown text.
type DocToMarkdown struct {
	docs driven.DocumentService
	root string
}

// NewDocToMarkdown creates the document conversion digester. root is the
// data directory file paths are relative to.
func NewDocToMarkdown(docs driven.DocumentService, root string) *DocToMarkdown {
	return &DocToMarkdown{docs: docs, root: root}
}

func (d *DocToMarkdown) Name() string        { return DigesterDocToMarkdown }
func (d *DocToMarkdown) Label() string       { return "Document Converter" }
func (d *DocToMarkdown) Description() string { return "Convert documents to markdown" }

func (d *DocToMarkdown) CanDigest(file *domain.FileRecord) bool {
	return isDocument(file.Mime())
}

func (d *DocToMarkdown) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	markdown, err := d.docs.ConvertToMarkdown(ctx, filepath.Join(d.root, file.Path))
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", file.Path, err)
	}
	return []domain.DigestInput{completedInput(file.Path, DigesterDocToMarkdown, &markdown)}, nil
}
