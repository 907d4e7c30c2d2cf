package cli

import (
	"context"
	"errors"

	"github.com/lifedex/lifedex/internal/adapters/driven/storage/memory"
	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/digesters"
)

// mockSearchService returns canned fused results.
type mockSearchService struct {
	results []domain.FusedResult
	err     error
}

func (m *mockSearchService) Search(_ context.Context, _ string, _ domain.SearchOptions) ([]domain.FusedResult, error) {
	return m.results, m.err
}

// mockCoordinator records calls and returns canned outcomes.
type mockCoordinator struct {
	ensureErr  error
	processErr error
	success    bool
	lastPath   string
	lastOpts   domain.ProcessOptions
}

func (m *mockCoordinator) EnsureAllDigesters(_ context.Context, _ string) error {
	return m.ensureErr
}

func (m *mockCoordinator) ProcessFile(_ context.Context, path string, opts domain.ProcessOptions) (bool, error) {
	m.lastPath = path
	m.lastOpts = opts
	return m.success, m.processErr
}

// mockIngestor records ingested paths.
type mockIngestor struct {
	ingested []string
	err      error
}

func (m *mockIngestor) IngestFile(_ context.Context, path string) error {
	m.ingested = append(m.ingested, path)
	return m.err
}

func (m *mockIngestor) RemoveFile(_ context.Context, _ string) error { return nil }

var errMock = errors.New("mock failure")

// setupTestServices wires mocks and memory stores into the command tree
// and returns a cleanup that restores the previous wiring.
func setupTestServices() func() {
	prevSearch := searchService
	prevCoord := coordinator
	prevIngestor := ingestor
	prevFiles := fileStore
	prevDigests := digestStore
	prevRegistry := registry
	prevDefaults := searchDefaults

	searchService = &mockSearchService{
		results: []domain.FusedResult{
			{
				DocumentID: "inbox/trip.md:doc-to-markdown:0",
				FilePath:   "inbox/trip.md",
				Snippet:    "packing list for the beach trip",
				Score:      0.016,
				InKeyword:  true,
				InSemantic: true,
			},
		},
	}
	coordinator = &mockCoordinator{success: true}
	ingestor = &mockIngestor{}
	fileStore = memory.NewFileStore()
	digestStore = memory.NewDigestStore()
	registry = digesters.NewRegistry()
	searchDefaults = domain.SearchOptions{Limit: 20, KeywordWeight: 0.5, SemanticWeight: 0.5}

	return func() {
		searchService = prevSearch
		coordinator = prevCoord
		ingestor = prevIngestor
		fileStore = prevFiles
		digestStore = prevDigests
		registry = prevRegistry
		searchDefaults = prevDefaults
	}
}
