package domain

// SearchOptions controls a hybrid search request.
type SearchOptions struct {
	// Limit is the maximum number of fused results. Defaults to 20.
	Limit int

	// KeywordWeight and SemanticWeight scale each source's rank-based
	// contribution. Both default to 0.5.
	KeywordWeight  float64
	SemanticWeight float64
}

// KeywordHit is one result from the keyword index.
type KeywordHit struct {
	// DocumentID identifies the matched document.
	DocumentID string

	// FilePath is the owning file.
	FilePath string

	// Snippet is a highlighted excerpt when the index provides one.
	Snippet string

	// Score is the engine's relevance score.
	Score float64
}

// VectorHit is one result from the vector index.
type VectorHit struct {
	// DocumentID identifies the matched document.
	DocumentID string

	// FilePath is the owning file.
	FilePath string

	// SourceType is the content source the chunk came from.
	SourceType string

	// Text is the chunk text stored alongside the vector.
	Text string

	// Similarity is the cosine similarity, 0-1.
	Similarity float64
}

// FusedResult is one entry in the merged ranking produced by Reciprocal
// Rank Fusion. Per-source sub-scores are preserved for transparency.
type FusedResult struct {
	// DocumentID is the cross-source document identity.
	DocumentID string

	// FilePath is the owning file.
	FilePath string

	// Snippet is excerpt text from whichever source supplied one.
	Snippet string

	// Score is the combined RRF score.
	Score float64

	// KeywordScore is the keyword source's RRF contribution, 0 when the
	// document did not appear in the keyword list.
	KeywordScore float64

	// SemanticScore is the vector source's RRF contribution, 0 when the
	// document did not appear in the vector list.
	SemanticScore float64

	// InKeyword and InSemantic record which sources contributed.
	InKeyword  bool
	InSemantic bool
}
