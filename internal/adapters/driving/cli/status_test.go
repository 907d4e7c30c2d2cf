package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/internal/adapters/driven/storage/memory"
	"github.com/lifedex/lifedex/internal/core/domain"
)

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status [path]", statusCmd.Use)
}

func TestStatusCmd_EmptyInbox(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Inbox is empty")
}

func TestStatusCmd_Overview(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	files := memory.NewFileStore()
	files.Put(domain.FileRecord{Path: "inbox/a.txt", Name: "a.txt"})
	fileStore = files

	ctx := context.Background()
	require.NoError(t, digestStore.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.txt", Digester: "summary", Status: domain.DigestCompleted,
	}))
	require.NoError(t, digestStore.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/a.txt", Digester: "tags", Status: domain.DigestPending,
	}))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "inbox/a.txt")
	assert.Contains(t, buf.String(), "completed=1")
	assert.Contains(t, buf.String(), "pending=1")
}

func TestStatusCmd_ForFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	errMsg := "transcription timed out"
	ctx := context.Background()
	require.NoError(t, digestStore.Upsert(ctx, domain.DigestInput{
		FilePath: "inbox/memo.m4a", Digester: "speech-transcript",
		Status: domain.DigestFailed, Error: &errMsg,
	}))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "inbox/memo.m4a"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "speech-transcript")
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "transcription timed out")
}

func TestStatusCmd_ForFileWithoutDigests(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "inbox/unknown.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No digests for inbox/unknown.txt")
}

// fakeDigester carries just enough metadata for the pipeline listing.
type fakeDigester struct {
	name, label, desc string
}

func (d fakeDigester) Name() string        { return d.name }
func (d fakeDigester) Label() string       { return d.label }
func (d fakeDigester) Description() string { return d.desc }

func (d fakeDigester) CanDigest(_ *domain.FileRecord) bool { return true }

func (d fakeDigester) Digest(_ context.Context, _ *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	return nil, nil
}

func TestStatusCmd_DigestersListsPipeline(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	registry.Register(fakeDigester{name: "image-ocr", label: "Image OCR", desc: "Extract text from images"})
	registry.Register(fakeDigester{name: "summary", label: "Summary", desc: "Summarise file content"})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "--digesters"})
	defer func() {
		rootCmd.SetArgs(nil)
		statusDigesters = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Digester pipeline:")
	assert.Contains(t, buf.String(), "Image OCR")
	assert.Contains(t, buf.String(), "Extract text from images")
	assert.Contains(t, buf.String(), "Summarise file content")
}

func TestStatusCmd_DigestersEmptyRegistry(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "--digesters"})
	defer func() {
		rootCmd.SetArgs(nil)
		statusDigesters = false
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No digesters registered")
}

func TestStatusCmd_StoreNotConfigured(t *testing.T) {
	oldStore := digestStore
	digestStore = nil
	defer func() {
		digestStore = oldStore
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "digest store not configured")
}

func TestSummariseStatuses(t *testing.T) {
	assert.Equal(t, "no digests", summariseStatuses(nil))

	records := []domain.Digest{
		{Status: domain.DigestCompleted},
		{Status: domain.DigestCompleted},
		{Status: domain.DigestFailed},
	}
	assert.Equal(t, "completed=2 failed=1", summariseStatuses(records))
}
