package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure the indexes implement their interfaces.
var (
	_ driven.KeywordIndex = (*KeywordIndex)(nil)
	_ driven.VectorIndex  = (*VectorIndex)(nil)
)

// KeywordIndex is an in-memory implementation of driven.KeywordIndex with
// naive term-frequency ranking. Good enough for tests and offline runs.
type KeywordIndex struct {
	mu   sync.RWMutex
	docs map[string]driven.KeywordDocument
}

// NewKeywordIndex creates a new in-memory keyword index.
func NewKeywordIndex() *KeywordIndex {
	return &KeywordIndex{docs: make(map[string]driven.KeywordDocument)}
}

// Upsert adds or replaces a document in the index.
func (idx *KeywordIndex) Upsert(_ context.Context, doc driven.KeywordDocument) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs[doc.DocumentID] = doc
	return nil
}

// Delete removes a document from the index.
func (idx *KeywordIndex) Delete(_ context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.docs, documentID)
	return nil
}

// Search counts query term occurrences across the document fields.
func (idx *KeywordIndex) Search(_ context.Context, query string, limit int) ([]domain.KeywordHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))
	var hits []domain.KeywordHit
	for _, doc := range idx.docs {
		haystack := strings.ToLower(doc.Name + " " + doc.Content + " " + doc.Summary + " " + doc.Tags)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(haystack, term))
		}
		if score > 0 {
			hits = append(hits, domain.KeywordHit{
				DocumentID: doc.DocumentID,
				FilePath:   doc.FilePath,
				Snippet:    snippet(doc.Content),
				Score:      score,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func snippet(content string) string {
	const max = 160
	if len(content) <= max {
		return content
	}
	return content[:max]
}

// VectorIndex is an in-memory implementation of driven.VectorIndex ranking
// by cosine similarity.
type VectorIndex struct {
	mu     sync.RWMutex
	points map[string]driven.VectorPoint
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{points: make(map[string]driven.VectorPoint)}
}

// Upsert adds or replaces points in the index.
func (idx *VectorIndex) Upsert(_ context.Context, points []driven.VectorPoint) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, p := range points {
		idx.points[p.DocumentID] = p
	}
	return nil
}

// Delete removes points from the index by document ID.
func (idx *VectorIndex) Delete(_ context.Context, documentIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range documentIDs {
		delete(idx.points, id)
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (idx *VectorIndex) Search(_ context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []domain.VectorHit
	for _, p := range idx.points {
		sim := cosine(query, p.Embedding)
		hits = append(hits, domain.VectorHit{
			DocumentID: p.DocumentID,
			FilePath:   p.FilePath,
			SourceType: p.SourceType,
			Text:       p.Text,
			Similarity: sim,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
