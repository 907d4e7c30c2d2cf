package digesters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

const tagsSystemPrompt = "You label personal files with tags. Produce " +
	"between one and eight short lowercase tags describing the content's " +
	"topics, people, places and document type."

// tagsSchema constrains the completion to a flat list of strings.
var tagsSchema = []byte(`{
	"type": "object",
	"properties": {
		"tags": {
			"type": "array",
			"items": {"type": "string"},
			"maxItems": 8
		}
	},
	"required": ["tags"],
	"additionalProperties": false
}`)

// tagsMinChars is the least text worth tagging.
const tagsMinChars = 10

// Tags generates topical labels for a file from its combined text.
type Tags struct {
	completion driven.CompletionService
	root       string
	prompt     string
}

// NewTags creates the tagging digester.
func NewTags(completion driven.CompletionService, root string) *Tags {
	return &Tags{completion: completion, root: root, prompt: tagsSystemPrompt}
}

func (d *Tags) Name() string        { return DigesterTags }
func (d *Tags) Label() string       { return "Tags" }
func (d *Tags) Description() string { return "Generate tags for file content" }

func (d *Tags) CanDigest(file *domain.FileRecord) bool {
	return !file.IsFolder
}

func (d *Tags) Digest(ctx context.Context, file *domain.FileRecord, existing []domain.Digest) ([]domain.DigestInput, error) {
	if textSourcesPending(existing) {
		return nil, domain.ErrDependencyNotReady
	}

	text := CombinedText(d.root, file, existing)
	if len(text) < tagsMinChars {
		return []domain.DigestInput{completedInput(file.Path, DigesterTags, nil)}, nil
	}

	raw, err := d.completion.CompleteJSON(ctx, d.prompt, text, "tags", tagsSchema)
	if err != nil {
		return nil, fmt.Errorf("tagging %s: %w", file.Path, err)
	}

	// Normalise the payload so consumers never see malformed JSON.
	var payload struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding tags for %s: %w", file.Path, err)
	}
	normalised, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	content := string(normalised)
	return []domain.DigestInput{completedInput(file.Path, DigesterTags, &content)}, nil
}
