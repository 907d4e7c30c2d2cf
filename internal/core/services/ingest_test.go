package services

import (
	"context"
	"strings"
	"testing"

	"github.com/lifedex/lifedex/internal/adapters/driven/storage/memory"
	"github.com/lifedex/lifedex/internal/chunker"
	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/digesters"
)

// unitEmbedder returns a deterministic embedding derived from text length.
type unitEmbedder struct{}

func (unitEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (u unitEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = u.Embed(ctx, t)
	}
	return out, nil
}

func strp(s string) *string { return &s }

func setupIngest(t *testing.T) (*IngestService, *memory.FileStore, *memory.DigestStore, *memory.ChunkStore, *memory.VectorIndex, *memory.KeywordIndex) {
	t.Helper()
	files := memory.NewFileStore()
	digests := memory.NewDigestStore()
	chunks := memory.NewChunkStore()
	vectors := memory.NewVectorIndex()
	keywords := memory.NewKeywordIndex()
	svc := NewIngestService(files, digests, chunks, unitEmbedder{}, vectors, keywords, chunker.New(chunker.WithTargetTokens(50)), t.TempDir())
	return svc, files, digests, chunks, vectors, keywords
}

func TestIngestFileIndexesContentSources(t *testing.T) {
	ctx := context.Background()
	svc, files, digests, chunks, vectors, keywords := setupIngest(t)

	files.Put(domain.FileRecord{Path: "inbox/scan.jpg", Name: "scan.jpg", MimeType: strp("image/jpeg")})
	if err := digests.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/scan.jpg",
		Digester: digesters.DigesterImageOCR,
		Status:   domain.DigestCompleted,
		Content:  strp(strings.Repeat("Invoice total forty two euros. ", 40)),
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.IngestFile(ctx, "inbox/scan.jpg"); err != nil {
		t.Fatal(err)
	}

	stored, err := chunks.ListForFile(ctx, "inbox/scan.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) < 2 {
		t.Fatalf("expected multiple chunks for long OCR text, got %d", len(stored))
	}
	for i := range stored {
		if stored[i].SourceType != digesters.DigesterImageOCR {
			t.Errorf("unexpected source type %q", stored[i].SourceType)
		}
	}

	vhits, err := vectors.Search(ctx, []float32{200, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(vhits) == 0 {
		t.Error("expected vector points to be indexed")
	}

	khits, err := keywords.Search(ctx, "invoice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(khits) != 1 || khits[0].DocumentID != "inbox/scan.jpg" {
		t.Errorf("expected one keyword document keyed by path, got %v", khits)
	}
}

func TestIngestFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, files, digests, chunks, _, _ := setupIngest(t)

	files.Put(domain.FileRecord{Path: "inbox/a.jpg", Name: "a.jpg", MimeType: strp("image/jpeg")})
	if err := digests.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.jpg",
		Digester: digesters.DigesterImageOCR,
		Status:   domain.DigestCompleted,
		Content:  strp(strings.Repeat("same text forever. ", 60)),
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.IngestFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}
	first, _ := chunks.ListForFile(ctx, "inbox/a.jpg")

	if err := svc.IngestFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}
	second, _ := chunks.ListForFile(ctx, "inbox/a.jpg")

	if len(first) != len(second) {
		t.Fatalf("expected stable chunk count, got %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].DocumentID() != second[i].DocumentID() || first[i].ContentHash != second[i].ContentHash {
			t.Errorf("chunk %d changed identity across runs", i)
		}
	}
}

func TestIngestFileDeletesStaleSourcePoints(t *testing.T) {
	ctx := context.Background()
	svc, files, digests, _, vectors, _ := setupIngest(t)

	files.Put(domain.FileRecord{Path: "inbox/a.jpg", Name: "a.jpg", MimeType: strp("image/jpeg")})
	if err := digests.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.jpg",
		Digester: digesters.DigesterImageOCR,
		Status:   domain.DigestCompleted,
		Content:  strp("short ocr text that fits one chunk"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.IngestFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}

	// OCR re-runs and produces nothing: the source disappears.
	if err := digests.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.jpg",
		Digester: digesters.DigesterImageOCR,
		Status:   domain.DigestCompleted,
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.IngestFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}

	hits, err := vectors.Search(ctx, []float32{30, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.FilePath == "inbox/a.jpg" {
			t.Errorf("expected stale point removed, found %v", h)
		}
	}
}

func TestRemoveFileClearsBothIndexes(t *testing.T) {
	ctx := context.Background()
	svc, files, digests, chunks, vectors, keywords := setupIngest(t)

	files.Put(domain.FileRecord{Path: "inbox/a.jpg", Name: "a.jpg", MimeType: strp("image/jpeg")})
	if err := digests.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.jpg",
		Digester: digesters.DigesterImageOCR,
		Status:   domain.DigestCompleted,
		Content:  strp("searchable words here"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.IngestFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveFile(ctx, "inbox/a.jpg"); err != nil {
		t.Fatal(err)
	}

	if rows, _ := chunks.ListForFile(ctx, "inbox/a.jpg"); len(rows) != 0 {
		t.Errorf("expected chunk rows removed, got %d", len(rows))
	}
	if hits, _ := vectors.Search(ctx, []float32{20, 1}, 10); len(hits) != 0 {
		t.Errorf("expected vector points removed, got %v", hits)
	}
	if hits, _ := keywords.Search(ctx, "searchable", 10); len(hits) != 0 {
		t.Errorf("expected keyword document removed, got %v", hits)
	}
	if records, _ := digests.ListForPath(ctx, "inbox/a.jpg"); len(records) != 0 {
		t.Errorf("expected digest records removed, got %v", records)
	}
}
