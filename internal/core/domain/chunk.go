package domain

import "fmt"

// Chunk is a bounded, possibly overlapping segment of derived text prepared
// for vector indexing. Chunks are recomputed from scratch whenever a file's
// content sources change; identity is content-addressed so unchanged chunks
// can be detected without re-embedding.
type Chunk struct {
	// FilePath is the file the chunk was derived from.
	FilePath string

	// SourceType names the content source the text came from
	// (e.g. "doc-to-markdown", "image-ocr", "file").
	SourceType string

	// Index is the 0-based position of the chunk within its source.
	Index int

	// Count is the total number of chunks produced from the source.
	Count int

	// Text is the chunk content.
	Text string

	// SpanStart and SpanEnd are byte offsets into the source text.
	SpanStart int
	SpanEnd   int

	// OverlapTokens is the estimated token overlap with the previous
	// chunk. Zero for the first chunk.
	OverlapTokens int

	// WordCount is the whitespace-delimited word count.
	WordCount int

	// TokenCount is the estimated token count.
	TokenCount int

	// ContentHash is the SHA-256 hash of Text.
	ContentHash string
}

// DocumentID returns the stable identifier used for idempotent re-indexing:
// unchanged files re-chunk to the same IDs, so upserts replace rather than
// duplicate.
func (c *Chunk) DocumentID() string {
	return fmt.Sprintf("%s:%s:%d", c.FilePath, c.SourceType, c.Index)
}
