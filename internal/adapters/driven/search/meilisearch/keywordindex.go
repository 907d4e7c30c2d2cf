// Package meilisearch implements the keyword index port against a
// Meilisearch server.
package meilisearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/logger"
)

// DefaultIndex is the index holding file-level documents.
const DefaultIndex = "lifedex_files"

// KeywordIndex implements driven.KeywordIndex using Meilisearch.
type KeywordIndex struct {
	index meilisearch.IndexManager
}

var _ driven.KeywordIndex = (*KeywordIndex)(nil)

// document is the Meilisearch representation of a keyword document.
// Meilisearch primary keys only allow [a-zA-Z0-9_-], so the real document
// ID travels as a payload field and the key is a hash of it.
type document struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	Tags       string `json:"tags"`
}

// searchHit is the decoded shape of one Meilisearch search hit.
type searchHit struct {
	document
	RankingScore float64 `json:"_rankingScore"`
	Formatted    struct {
		Content string `json:"content"`
	} `json:"_formatted"`
}

// NewKeywordIndex creates a Meilisearch-backed keyword index.
func NewKeywordIndex(host, apiKey, indexUID string) *KeywordIndex {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	if indexUID == "" {
		indexUID = DefaultIndex
	}
	return &KeywordIndex{index: client.Index(indexUID)}
}

// EnsureSettings applies the searchable-attribute configuration. Meilisearch
// applies settings asynchronously; callers only need this once at startup.
func (k *KeywordIndex) EnsureSettings(ctx context.Context) error {
	_, err := k.index.UpdateSettingsWithContext(ctx, &meilisearch.Settings{
		SearchableAttributes: []string{"name", "content", "summary", "tags"},
	})
	if err != nil {
		return fmt.Errorf("updating index settings: %w", err)
	}
	return nil
}

// Upsert adds or replaces a document in the index.
func (k *KeywordIndex) Upsert(ctx context.Context, doc driven.KeywordDocument) error {
	_, err := k.index.AddDocumentsWithContext(ctx, []document{{
		ID:         documentKey(doc.DocumentID),
		DocumentID: doc.DocumentID,
		FilePath:   doc.FilePath,
		Name:       doc.Name,
		Content:    doc.Content,
		Summary:    doc.Summary,
		Tags:       doc.Tags,
	}}, "id")
	if err != nil {
		return fmt.Errorf("upserting keyword document: %w", err)
	}

	logger.Debug("upserted keyword document for %s", doc.DocumentID)
	return nil
}

// Delete removes a document from the index.
func (k *KeywordIndex) Delete(ctx context.Context, documentID string) error {
	_, err := k.index.DeleteDocumentWithContext(ctx, documentKey(documentID))
	if err != nil {
		return fmt.Errorf("deleting keyword document: %w", err)
	}
	return nil
}

// Search performs a keyword search and returns ranked hits with cropped
// content snippets.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]domain.KeywordHit, error) {
	resp, err := k.index.SearchWithContext(ctx, query, &meilisearch.SearchRequest{
		Limit:            int64(limit),
		AttributesToCrop: []string{"content"},
		CropLength:       30,
		ShowRankingScore: true,
	})
	if err != nil {
		return nil, fmt.Errorf("searching keyword index: %w", err)
	}

	hits := make([]domain.KeywordHit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		hit, err := decodeHit(raw)
		if err != nil {
			return nil, err
		}
		snippet := hit.Formatted.Content
		if snippet == "" {
			snippet = hit.Content
		}
		hits = append(hits, domain.KeywordHit{
			DocumentID: hit.DocumentID,
			FilePath:   hit.FilePath,
			Snippet:    snippet,
			Score:      hit.RankingScore,
		})
	}

	return hits, nil
}

// documentKey hashes a document ID into a Meilisearch-safe primary key.
func documentKey(documentID string) string {
	sum := sha256.Sum256([]byte(documentID))
	return hex.EncodeToString(sum[:])
}

// decodeHit round-trips one hit through JSON into the typed shape.
func decodeHit(raw any) (*searchHit, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding search hit: %w", err)
	}
	var hit searchHit
	if err := json.Unmarshal(buf, &hit); err != nil {
		return nil, fmt.Errorf("decoding search hit: %w", err)
	}
	return &hit, nil
}
