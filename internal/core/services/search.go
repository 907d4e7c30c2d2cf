package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/core/ports/driving"
	"github.com/lifedex/lifedex/internal/logger"
)

// rrfK dampens the influence of top ranks in Reciprocal Rank Fusion.
const rrfK = 60

// defaultSearchLimit is the fused result count when the caller does not set one.
const defaultSearchLimit = 20

// defaultWeight is the per-source weight when the caller does not set one.
const defaultWeight = 0.5

// SearchService merges keyword and semantic search over the indexed
// content. The two branches run in parallel and each may be missing or
// failing; results degrade to whichever branch answered.
type SearchService struct {
	keywords driven.KeywordIndex
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex
}

var _ driving.SearchService = (*SearchService)(nil)

// NewSearchService creates the hybrid search service. Either branch's
// dependencies may be nil; at least one branch must be usable at query time.
func NewSearchService(keywords driven.KeywordIndex, embedder driven.EmbeddingService, vectors driven.VectorIndex) *SearchService {
	return &SearchService{
		keywords: keywords,
		embedder: embedder,
		vectors:  vectors,
	}
}

// Search runs both branches capped at twice the requested limit (giving the
// fusion room to re-rank) and merges them with weighted RRF.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.FusedResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	keywordWeight := opts.KeywordWeight
	if keywordWeight <= 0 {
		keywordWeight = defaultWeight
	}
	semanticWeight := opts.SemanticWeight
	if semanticWeight <= 0 {
		semanticWeight = defaultWeight
	}
	fetchLimit := 2 * limit

	var (
		keywordHits []domain.KeywordHit
		vectorHits  []domain.VectorHit
		keywordErr  error
		vectorErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.keywords != nil {
		g.Go(func() error {
			keywordHits, keywordErr = s.keywords.Search(gctx, query, fetchLimit)
			return nil
		})
	} else {
		keywordErr = domain.ErrKeywordIndexUnavailable
	}
	if s.vectors != nil && s.embedder != nil {
		g.Go(func() error {
			embedding, err := s.embedder.Embed(gctx, query)
			if err != nil {
				vectorErr = fmt.Errorf("embedding query: %w", err)
				return nil
			}
			vectorHits, vectorErr = s.vectors.Search(gctx, embedding, fetchLimit)
			return nil
		})
	} else {
		vectorErr = domain.ErrVectorIndexUnavailable
	}
	_ = g.Wait()

	if keywordErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("both search branches failed: keyword: %v; semantic: %v", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("keyword search branch unavailable: %v", keywordErr)
	}
	if vectorErr != nil {
		logger.Warn("semantic search branch unavailable: %v", vectorErr)
	}

	return reciprocalRankFusion(keywordHits, vectorHits, keywordWeight, semanticWeight, limit), nil
}

// reciprocalRankFusion merges the two ranked lists. Each hit contributes
// weight/(k+rank+1) keyed by document ID; a document present in both lists
// accumulates both contributions. Rank position is what matters, the
// engines' raw scores are ignored. A duplicate ID within one list keeps
// its best rank; later occurrences are dropped.
func reciprocalRankFusion(keywordHits []domain.KeywordHit, vectorHits []domain.VectorHit, keywordWeight, semanticWeight float64, limit int) []domain.FusedResult {
	merged := make(map[string]*domain.FusedResult, len(keywordHits)+len(vectorHits))

	for rank, hit := range keywordHits {
		if _, ok := merged[hit.DocumentID]; ok {
			continue
		}
		score := keywordWeight / float64(rrfK+rank+1)
		merged[hit.DocumentID] = &domain.FusedResult{
			DocumentID:   hit.DocumentID,
			FilePath:     hit.FilePath,
			Snippet:      hit.Snippet,
			Score:        score,
			KeywordScore: score,
			InKeyword:    true,
		}
	}

	for rank, hit := range vectorHits {
		score := semanticWeight / float64(rrfK+rank+1)
		if entry, ok := merged[hit.DocumentID]; ok {
			if entry.InSemantic {
				continue
			}
			entry.Score += score
			entry.SemanticScore = score
			entry.InSemantic = true
			if entry.Snippet == "" {
				entry.Snippet = hit.Text
			}
			continue
		}
		merged[hit.DocumentID] = &domain.FusedResult{
			DocumentID:    hit.DocumentID,
			FilePath:      hit.FilePath,
			Snippet:       hit.Text,
			Score:         score,
			SemanticScore: score,
			InSemantic:    true,
		}
	}

	results := make([]domain.FusedResult, 0, len(merged))
	for _, entry := range merged {
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
