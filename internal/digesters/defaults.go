package digesters

import "github.com/lifedex/lifedex/internal/core/ports/driven"

// Services groups the external capabilities digesters run on. Any field may
// be nil when the corresponding backend is not configured; digesters that
// need it are then left unregistered and their old records get skipped as
// orphans.
type Services struct {
	Crawler    driven.CrawlService
	Documents  driven.DocumentService
	Vision     driven.VisionService
	Speech     driven.SpeechService
	Completion driven.CompletionService

	// Prompts supplies user-edited system prompts for the LLM digesters.
	// Nil keeps the built-in prompts.
	Prompts driven.PromptStore
}

// DefaultRegistry builds the standard pipeline in dependency order from
// whichever services are configured. root is the data directory file paths
// are relative to.
func DefaultRegistry(root string, svcs Services) *Registry {
	r := NewRegistry()
	if svcs.Crawler != nil {
		r.Register(NewURLCrawl(svcs.Crawler))
	}
	if svcs.Documents != nil {
		r.Register(NewDocToMarkdown(svcs.Documents, root))
	}
	if svcs.Vision != nil {
		r.Register(NewImageOCR(svcs.Vision, root))
		r.Register(NewImageCaption(svcs.Vision, root))
		r.Register(NewImageObjects(svcs.Vision, root))
	}
	if svcs.Speech != nil {
		r.Register(NewSpeechTranscript(svcs.Speech, root))
	}
	if svcs.Completion != nil {
		if svcs.Speech != nil {
			cleanup := NewTranscriptCleanup(svcs.Completion)
			cleanup.prompt = loadPrompt(svcs.Prompts, driven.PromptTranscriptCleanup, cleanup.prompt)
			r.Register(cleanup)
		}
		summary := NewSummary(svcs.Completion, root)
		summary.prompt = loadPrompt(svcs.Prompts, driven.PromptSummary, summary.prompt)
		r.Register(summary)

		tags := NewTags(svcs.Completion, root)
		tags.prompt = loadPrompt(svcs.Prompts, driven.PromptTags, tags.prompt)
		r.Register(tags)
	}
	return r
}

// loadPrompt returns the stored override for name, or fallback when the
// store is absent, errors or holds an empty prompt.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
