package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lifedex/lifedex/internal/chunker"
	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/ports/driving"
	"github.com/lifedex/lifedex/internal/digesters"
	"github.com/lifedex/lifedex/internal/logger"
)

// embedBatchSize is how many chunks go into one embedding request.
const embedBatchSize = 32

// embedConcurrency bounds parallel embedding requests.
const embedConcurrency = 4

// IngestService pushes a file's derived content into the search indexes.
// Chunk identity is stable across runs, so re-ingesting an unchanged file
// replaces rather than duplicates.
type IngestService struct {
	files    driven.FileStore
	digests  driven.DigestStore
	chunks   driven.ChunkStore
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
	keywords driven.KeywordIndex
	splitter *chunker.Chunker
	root     string
}

var _ driving.Ingestor = (*IngestService)(nil)

// NewIngestService creates the ingestion service. embedder/vectors and
// keywords may be nil when the corresponding index is not configured; the
// other index keeps working.
func NewIngestService(
	files driven.FileStore,
	digests driven.DigestStore,
	chunks driven.ChunkStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
	keywords driven.KeywordIndex,
	splitter *chunker.Chunker,
	root string,
) *IngestService {
	return &IngestService{
		files:    files,
		digests:  digests,
		chunks:   chunks,
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		splitter: splitter,
		root:     root,
	}
}

// IngestFile chunks the file's content sources, embeds the chunks and
// upserts them into the vector index, and upserts the combined text into
// the keyword index. Vector points from sources that no longer produce
// text are deleted.
func (s *IngestService) IngestFile(ctx context.Context, path string) error {
	file, err := s.files.GetByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("loading file %s: %w", path, err)
	}
	records, err := s.digests.ListForPath(ctx, path)
	if err != nil {
		return fmt.Errorf("listing digests for %s: %w", path, err)
	}

	sources := digesters.ContentSources(s.root, file, records)

	if s.vectors != nil && s.embedder != nil {
		if err := s.ingestVectors(ctx, path, sources); err != nil {
			return err
		}
	}

	if s.keywords != nil {
		if err := s.ingestKeywords(ctx, file, records, sources); err != nil {
			return err
		}
	}

	return nil
}

// RemoveFile deletes the file's documents from both indexes and drops its
// chunk bookkeeping and digest records.
func (s *IngestService) RemoveFile(ctx context.Context, path string) error {
	ids, err := s.chunks.DeleteForFile(ctx, path)
	if err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", path, err)
	}
	if s.vectors != nil && len(ids) > 0 {
		if err := s.vectors.Delete(ctx, ids); err != nil {
			return fmt.Errorf("deleting vectors for %s: %w", path, err)
		}
	}
	if s.keywords != nil {
		if err := s.keywords.Delete(ctx, path); err != nil {
			return fmt.Errorf("deleting keyword document for %s: %w", path, err)
		}
	}
	if err := s.digests.DeleteForPath(ctx, path); err != nil {
		return fmt.Errorf("deleting digests for %s: %w", path, err)
	}
	return nil
}

func (s *IngestService) ingestVectors(ctx context.Context, path string, sources []digesters.ContentSource) error {
	previous, err := s.chunks.ListForFile(ctx, path)
	if err != nil {
		return fmt.Errorf("listing chunks for %s: %w", path, err)
	}

	current := make(map[string]bool)
	for _, src := range sources {
		chs := s.splitter.Split(path, src.SourceType, src.Text)
		if err := s.chunks.ReplaceForFileSource(ctx, path, src.SourceType, chs); err != nil {
			return fmt.Errorf("replacing chunks for %s/%s: %w", path, src.SourceType, err)
		}

		points, err := s.embedChunks(ctx, chs)
		if err != nil {
			return fmt.Errorf("embedding chunks for %s/%s: %w", path, src.SourceType, err)
		}
		if err := s.vectors.Upsert(ctx, points); err != nil {
			return fmt.Errorf("upserting vectors for %s/%s: %w", path, src.SourceType, err)
		}

		for i := range chs {
			current[chs[i].DocumentID()] = true
		}
		logger.Debug("ingested %d chunks for %s/%s", len(chs), path, src.SourceType)
	}

	// Sources that stopped producing text leave stale points behind.
	var stale []string
	for i := range previous {
		if id := previous[i].DocumentID(); !current[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.vectors.Delete(ctx, stale); err != nil {
			return fmt.Errorf("deleting stale vectors for %s: %w", path, err)
		}
		logger.Debug("deleted %d stale vector points for %s", len(stale), path)
	}
	return nil
}

// embedChunks produces one vector point per chunk, batching the embedding
// calls and running batches in parallel.
func (s *IngestService) embedChunks(ctx context.Context, chs []domain.Chunk) ([]driven.VectorPoint, error) {
	points := make([]driven.VectorPoint, len(chs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chs); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(chs) {
			end = len(chs)
		}
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				texts = append(texts, chs[i].Text)
			}
			vectors, err := s.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedding batch returned %d vectors for %d texts", len(vectors), len(texts))
			}
			for i, vec := range vectors {
				ch := &chs[start+i]
				points[start+i] = driven.VectorPoint{
					DocumentID: ch.DocumentID(),
					Embedding:  vec,
					FilePath:   ch.FilePath,
					SourceType: ch.SourceType,
					Text:       ch.Text,
					ChunkIndex: ch.Index,
					ChunkCount: ch.Count,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *IngestService) ingestKeywords(ctx context.Context, file *domain.FileRecord, records []domain.Digest, sources []digesters.ContentSource) error {
	content := make([]string, 0, len(sources))
	for _, src := range sources {
		content = append(content, src.Text)
	}

	doc := driven.KeywordDocument{
		DocumentID: file.Path,
		FilePath:   file.Path,
		Name:       file.Name,
		Content:    joinNonEmpty(content, "\n\n"),
	}
	if d := domain.CompletedDigest(records, digesters.DigesterSummary); d != nil && d.Content != nil {
		doc.Summary = *d.Content
	}
	if d := domain.CompletedDigest(records, digesters.DigesterTags); d != nil && d.Content != nil {
		doc.Tags = tagList(*d.Content)
	}

	if doc.Content == "" && doc.Summary == "" && doc.Tags == "" {
		// Nothing searchable yet; drop any earlier document for the file.
		if err := s.keywords.Delete(ctx, doc.DocumentID); err != nil {
			return fmt.Errorf("deleting empty keyword document for %s: %w", file.Path, err)
		}
		return nil
	}

	if err := s.keywords.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("upserting keyword document for %s: %w", file.Path, err)
	}
	return nil
}

// tagList flattens a tags digest payload into space-separated tags.
func tagList(content string) string {
	var payload struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return ""
	}
	return joinNonEmpty(payload.Tags, " ")
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
