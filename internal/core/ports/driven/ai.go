package driven

import "context"

// CompletionService produces text and structured JSON from an
// OpenAI-compatible completion endpoint.
type CompletionService interface {
	// Complete returns the model's text response to the prompt.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// CompleteJSON constrains the response to the given JSON schema and
	// returns the raw JSON payload.
	CompleteJSON(ctx context.Context, system, prompt string, schemaName string, schema []byte) ([]byte, error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
