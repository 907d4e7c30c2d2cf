// Package qdrant implements the vector index port against a Qdrant server.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
	"github.com/lifedex/lifedex/internal/logger"
)

// DefaultCollection is the collection holding chunk embeddings.
const DefaultCollection = "lifedex_chunks"

// VectorIndex implements driven.VectorIndex using Qdrant.
type VectorIndex struct {
	client     *qdrant.Client
	collection string
}

var _ driven.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a Qdrant-backed vector index. urlStr should be in
// the format "http://host:port" (e.g. "http://localhost:6333"); the gRPC
// port is derived from the HTTP port.
func NewVectorIndex(urlStr, collection string) (*VectorIndex, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// gRPC port is typically HTTP port + 1
	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}

	return &VectorIndex{
		client:     client,
		collection: collection,
	}, nil
}

// EnsureCollection creates the collection when absent and validates the
// vector size when present.
func (v *VectorIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	exists, err := v.client.CollectionExists(ctx, v.collection)
	if err != nil {
		return fmt.Errorf("checking collection existence: %w", err)
	}

	if !exists {
		logger.Info("creating Qdrant collection %s (size %d)", v.collection, vectorSize)
		err := v.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: v.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
		return nil
	}

	info, err := v.client.GetCollectionInfo(ctx, v.collection)
	if err != nil {
		return fmt.Errorf("getting collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	return nil
}

// Upsert inserts or replaces points. Point IDs are derived
// deterministically from the chunk document ID, so re-ingesting an
// unchanged file overwrites in place.
func (v *VectorIndex) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for i := range points {
		p := &points[i]
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(p.DocumentID)),
			Vectors: qdrant.NewVectors(p.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": p.DocumentID,
				"file_path":   p.FilePath,
				"source_type": p.SourceType,
				"text":        p.Text,
				"chunk_index": p.ChunkIndex,
				"chunk_count": p.ChunkCount,
			}),
		})
	}

	_, err := v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	logger.Debug("upserted %d points into %s", len(points), v.collection)
	return nil
}

// Delete removes points by document ID.
func (v *VectorIndex) Delete(ctx context.Context, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, 0, len(documentIDs))
	for _, id := range documentIDs {
		ids = append(ids, qdrant.NewID(pointID(id)))
	}

	_, err := v.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: v.collection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	logger.Debug("deleted %d points from %s", len(documentIDs), v.collection)
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be greater than 0", domain.ErrInvalidInput)
	}

	limit := uint64(k)
	scored, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	hits := make([]domain.VectorHit, 0, len(scored))
	for _, point := range scored {
		hit := domain.VectorHit{Similarity: float64(point.Score)}
		if point.Payload != nil {
			hit.DocumentID = payloadString(point.Payload, "document_id")
			hit.FilePath = payloadString(point.Payload, "file_path")
			hit.SourceType = payloadString(point.Payload, "source_type")
			hit.Text = payloadString(point.Payload, "text")
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// pointID maps a chunk document ID onto a stable UUID, which is what Qdrant
// accepts as a point identifier.
func pointID(documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(documentID)).String()
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}
