package digesters

import (
	"context"
	"fmt"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// textSourceDigesters produce the text that summary and tags consume.
var textSourceDigesters = []string{
	DigesterURLCrawl,
	DigesterDocToMarkdown,
	DigesterImageOCR,
	DigesterImageCaption,
	DigesterImageObjects,
	DigesterSpeechTranscript,
	DigesterTranscriptCleanup,
}

// textSourcesPending reports whether any text-producing digest record for
// the file has not reached a resting state yet. Consumers wait rather than
// summarise partial content.
func textSourcesPending(existing []domain.Digest) bool {
	for i := range existing {
		for _, name := range textSourceDigesters {
			if existing[i].Digester == name && !existing[i].Status.Terminal() {
				return true
			}
		}
	}
	return false
}

const summarySystemPrompt = "You write short summaries of personal files. " +
	"Capture the key points in at most three sentences. Reply with the " +
	"summary only."

// summaryMinChars is the least text worth summarising.
const summaryMinChars = 10

// Summary condenses a file's best available text into a few sentences.
type Summary struct {
	completion driven.CompletionService
	root       string
	prompt     string
}

// NewSummary creates the summary digester.
func NewSummary(completion driven.CompletionService, root string) *Summary {
	return &Summary{completion: completion, root: root, prompt: summarySystemPrompt}
}

func (d *Summary) Name() string        { return DigesterSummary }
func (d *Summary) Label() string       { return "Summary" }
func (d *Summary) Description() string { return "Summarise file content" }

func (d *Summary) CanDigest(file *domain.FileRecord) bool {
	return !file.IsFolder
}

func (d *Summary) Digest(ctx context.Context, file *domain.FileRecord, existing []domain.Digest) ([]domain.DigestInput, error) {
	if textSourcesPending(existing) {
		return nil, domain.ErrDependencyNotReady
	}

	text := BestText(d.root, file, existing)
	if len(text) < summaryMinChars {
		return []domain.DigestInput{completedInput(file.Path, DigesterSummary, nil)}, nil
	}

	summary, err := d.completion.Complete(ctx, d.prompt, text)
	if err != nil {
		return nil, fmt.Errorf("summarising %s: %w", file.Path, err)
	}
	return []domain.DigestInput{completedInput(file.Path, DigesterSummary, &summary)}, nil
}
