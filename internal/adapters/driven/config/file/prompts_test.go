package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".lifedex", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesReadme(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Load triggers lazy init
	_, err = store.Load(driven.PromptSummary)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.NoError(t, err)
}

func TestPromptStore_Load_MissingOverrideIsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummary)

	require.NoError(t, err)
	assert.Empty(t, prompt)
}

func TestPromptStore_Load_ReturnsOverrideContent(t *testing.T) {
	dir := t.TempDir()

	customContent := "My custom summary prompt"
	err := os.WriteFile(
		filepath.Join(dir, "summary.txt"),
		[]byte(customContent),
		0600,
	)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummary)

	require.NoError(t, err)
	assert.Equal(t, customContent, prompt)
}

func TestPromptStore_Load_CachesResults(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "tags.txt"), []byte("original"), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt1, err := store.Load(driven.PromptTags)
	require.NoError(t, err)

	// Modify file on disk
	err = os.WriteFile(filepath.Join(dir, "tags.txt"), []byte("modified"), 0600)
	require.NoError(t, err)

	// Second load should return cached value
	prompt2, err := store.Load(driven.PromptTags)
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "tags.txt"), []byte("original"), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptTags)
	require.NoError(t, err)

	modifiedContent := "modified tags prompt"
	err = os.WriteFile(filepath.Join(dir, "tags.txt"), []byte(modifiedContent), 0600)
	require.NoError(t, err)

	store.Reload()

	prompt, err := store.Load(driven.PromptTags)
	require.NoError(t, err)

	assert.Equal(t, modifiedContent, prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "summary.txt"), []byte("shared prompt"), 0600)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines)

	errors := make(chan error, goroutines)
	prompts := make(chan string, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptSummary)
			if err != nil {
				errors <- err
				return
			}
			prompts <- prompt
		}()
	}

	wg.Wait()
	close(errors)
	close(prompts)

	for err := range errors {
		t.Errorf("unexpected error: %v", err)
	}

	for prompt := range prompts {
		assert.Equal(t, "shared prompt", prompt)
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()

	customContent := "pre-existing custom prompt"
	err := os.WriteFile(
		filepath.Join(dir, "summary.txt"),
		[]byte(customContent),
		0600,
	)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Trigger init
	_, _ = store.Load(driven.PromptTags)

	data, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	assert.Equal(t, customContent, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()

	contentWithWhitespace := "\n\n  prompt content  \n\n"
	err := os.WriteFile(
		filepath.Join(dir, "summary.txt"),
		[]byte(contentWithWhitespace),
		0600,
	)
	require.NoError(t, err)

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummary)
	require.NoError(t, err)

	assert.Equal(t, "prompt content", prompt)
}
