// Package digesters implements the pluggable content-derivation pipeline.
// Each digester inspects a file and produces derived records (extracted
// text, captions, detected objects, summaries) that downstream indexing
// builds on. Registration order is execution order, so producers are
// always registered before their consumers.
package digesters

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// Digester names, in pipeline order. Producers come before consumers.
const (
	DigesterURLCrawl          = "url-crawl"
	DigesterDocToMarkdown     = "doc-to-markdown"
	DigesterImageOCR          = "image-ocr"
	DigesterImageCaption      = "image-caption"
	DigesterImageObjects      = "image-objects"
	DigesterSpeechTranscript  = "speech-transcript"
	DigesterTranscriptCleanup = "transcript-cleanup"
	DigesterSummary           = "summary"
	DigesterTags              = "tags"
)

// Digester derives content from a file. Implementations must be stateless:
// the same file and existing digests always yield the same inputs.
type Digester interface {
	// Name is the unique identifier persisted in digest records.
	Name() string

	// Label is a short human-readable name for status surfaces.
	Label() string

	// Description explains what the digester produces.
	Description() string

	// CanDigest reports whether the digester applies to the file.
	// It must be cheap and side-effect free.
	CanDigest(file *domain.FileRecord) bool

	// Digest runs the digester. existing holds the file's current digest
	// records so consumers can read upstream output. A digester whose
	// upstream has not completed returns domain.ErrDependencyNotReady;
	// the run is recorded as a retryable failure.
	Digest(ctx context.Context, file *domain.FileRecord, existing []domain.Digest) ([]domain.DigestInput, error)
}

// Registry holds digesters in registration order.
type Registry struct {
	digesters []Digester
	byName    map[string]Digester
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Digester)}
}

// Register appends a digester. Registering a name twice replaces the
// earlier entry in place so ordering stays stable.
func (r *Registry) Register(d Digester) {
	if _, ok := r.byName[d.Name()]; ok {
		for i := range r.digesters {
			if r.digesters[i].Name() == d.Name() {
				r.digesters[i] = d
				break
			}
		}
	} else {
		r.digesters = append(r.digesters, d)
	}
	r.byName[d.Name()] = d
}

// All returns the digesters in registration order.
func (r *Registry) All() []Digester {
	out := make([]Digester, len(r.digesters))
	copy(out, r.digesters)
	return out
}

// Get returns the digester with the given name, or nil.
func (r *Registry) Get(name string) Digester {
	return r.byName[name]
}

// Has reports whether a digester with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.digesters))
	for _, d := range r.digesters {
		names = append(names, d.Name())
	}
	return names
}

// documentMimeTypes are the office and PDF formats the document converter
// accepts.
var documentMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-powerpoint":                                     {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
}

func isImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

func isAudio(mime string) bool {
	return strings.HasPrefix(mime, "audio/")
}

func isVideo(mime string) bool {
	return strings.HasPrefix(mime, "video/")
}

func isDocument(mime string) bool {
	_, ok := documentMimeTypes[mime]
	return ok
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
