package driven

// Prompt names understood by the prompt store. Each maps to a user-editable
// file; digesters fall back to built-in prompts when no override exists.
const (
	PromptSummary           = "summary"
	PromptTags              = "tags"
	PromptTranscriptCleanup = "transcript_cleanup"
)

// PromptStore loads system prompts for the LLM digesters.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
