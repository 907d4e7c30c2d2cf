package digesters

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// SpeechTranscript transcribes audio and video files.
type SpeechTranscript struct {
	speech driven.SpeechService
	root   string
}

// NewSpeechTranscript creates the transcription digester.
func NewSpeechTranscript(speech driven.SpeechService, root string) *SpeechTranscript {
	return &SpeechTranscript{speech: speech, root: root}
}

func (d *SpeechTranscript) Name() string        { return DigesterSpeechTranscript }
func (d *SpeechTranscript) Label() string       { return "Speech Recognition" }
func (d *SpeechTranscript) Description() string { return "Transcribe audio and video to text" }

func (d *SpeechTranscript) CanDigest(file *domain.FileRecord) bool {
	return isAudio(file.Mime()) || isVideo(file.Mime())
}

func (d *SpeechTranscript) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	transcript, err := d.speech.Transcribe(ctx, filepath.Join(d.root, file.Path))
	if err != nil {
		return nil, fmt.Errorf("transcribing %s: %w", file.Path, err)
	}

	payload, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	content := string(payload)
	return []domain.DigestInput{completedInput(file.Path, DigesterSpeechTranscript, &content)}, nil
}

const cleanupSystemPrompt = "You clean up raw speech-recognition transcripts. " +
	"Fix punctuation, casing and obvious recognition errors. Remove filler " +
	"words. Preserve the speaker's wording and meaning. Reply with the " +
	"cleaned transcript only."

// TranscriptCleanup rewrites a raw transcript into readable text. It
// consumes the transcription digester's output and cannot run until that
// record has completed.
type TranscriptCleanup struct {
	completion driven.CompletionService
	prompt     string
}

// NewTranscriptCleanup creates the transcript cleanup digester.
func NewTranscriptCleanup(completion driven.CompletionService) *TranscriptCleanup {
	return &TranscriptCleanup{completion: completion, prompt: cleanupSystemPrompt}
}

func (d *TranscriptCleanup) Name() string        { return DigesterTranscriptCleanup }
func (d *TranscriptCleanup) Label() string       { return "Transcript Cleanup" }
func (d *TranscriptCleanup) Description() string { return "Rewrite raw transcripts into readable text" }

func (d *TranscriptCleanup) CanDigest(file *domain.FileRecord) bool {
	return isAudio(file.Mime()) || isVideo(file.Mime())
}

func (d *TranscriptCleanup) Digest(ctx context.Context, file *domain.FileRecord, existing []domain.Digest) ([]domain.DigestInput, error) {
	upstream := domain.CompletedDigest(existing, DigesterSpeechTranscript)
	if upstream == nil {
		return nil, domain.ErrDependencyNotReady
	}
	if upstream.Content == nil {
		// Transcription completed but produced nothing to clean.
		return []domain.DigestInput{completedInput(file.Path, DigesterTranscriptCleanup, nil)}, nil
	}

	raw := transcriptText(*upstream.Content)
	if raw == "" {
		return []domain.DigestInput{completedInput(file.Path, DigesterTranscriptCleanup, nil)}, nil
	}

	cleaned, err := d.completion.Complete(ctx, d.prompt, raw)
	if err != nil {
		return nil, fmt.Errorf("cleaning transcript for %s: %w", file.Path, err)
	}
	return []domain.DigestInput{completedInput(file.Path, DigesterTranscriptCleanup, &cleaned)}, nil
}
