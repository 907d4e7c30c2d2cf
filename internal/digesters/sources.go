package digesters

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// ContentSource is one independently indexable body of text derived from a
// file. A file can carry several at once, e.g. an image with both OCR text
// and a caption.
type ContentSource struct {
	// SourceType names the digester (or "file") the text came from.
	// It is part of the chunk document ID.
	SourceType string

	// Text is the extracted text.
	Text string
}

// sourceFile is the pseudo source type for text read straight from disk.
const sourceFile = "file"

// ContentSources collects the file's text sources in priority order:
// crawled page content, converted document markdown, OCR text, caption,
// detected-object labels, cleaned transcript, raw transcript, and finally
// the file's own text when it is a markdown or plain-text file.
func ContentSources(root string, file *domain.FileRecord, digests []domain.Digest) []ContentSource {
	var sources []ContentSource

	add := func(sourceType, text string) {
		if text != "" {
			sources = append(sources, ContentSource{SourceType: sourceType, Text: text})
		}
	}

	if d := domain.CompletedDigest(digests, DigesterURLCrawl); d != nil && d.Content != nil {
		add(DigesterURLCrawl, crawlMarkdown(*d.Content))
	}
	if d := domain.CompletedDigest(digests, DigesterDocToMarkdown); d != nil && d.Content != nil {
		add(DigesterDocToMarkdown, *d.Content)
	}
	if d := domain.CompletedDigest(digests, DigesterImageOCR); d != nil && d.Content != nil {
		add(DigesterImageOCR, *d.Content)
	}
	if d := domain.CompletedDigest(digests, DigesterImageCaption); d != nil && d.Content != nil {
		add(DigesterImageCaption, *d.Content)
	}
	if d := domain.CompletedDigest(digests, DigesterImageObjects); d != nil && d.Content != nil {
		add(DigesterImageObjects, objectLabels(*d.Content))
	}
	if d := domain.CompletedDigest(digests, DigesterTranscriptCleanup); d != nil && d.Content != nil {
		add(DigesterTranscriptCleanup, *d.Content)
	} else if d := domain.CompletedDigest(digests, DigesterSpeechTranscript); d != nil && d.Content != nil {
		add(DigesterSpeechTranscript, transcriptText(*d.Content))
	}

	ext := strings.ToLower(filepath.Ext(file.Path))
	if ext == ".md" || ext == ".markdown" || ext == ".txt" {
		if content, err := os.ReadFile(filepath.Join(root, file.Path)); err == nil {
			add(sourceFile, string(content))
		}
	}
	if file.IsFolder {
		if content, err := os.ReadFile(filepath.Join(root, file.Path, "text.md")); err == nil {
			add(sourceFile, string(content))
		}
	}

	return sources
}

// CombinedText joins all content sources with blank lines. Used for keyword
// indexing and prompt construction.
func CombinedText(root string, file *domain.FileRecord, digests []domain.Digest) string {
	sources := ContentSources(root, file, digests)
	texts := make([]string, 0, len(sources))
	for _, s := range sources {
		texts = append(texts, s.Text)
	}
	return strings.Join(texts, "\n\n")
}

// BestText returns the highest-priority non-empty source, preferring the
// file's own text preview when present. Used by the summary prompt, where
// a single representative body beats concatenated fragments.
func BestText(root string, file *domain.FileRecord, digests []domain.Digest) string {
	if file.TextPreview != nil && *file.TextPreview != "" && !isHTTPURL(strings.TrimSpace(*file.TextPreview)) {
		return *file.TextPreview
	}
	sources := ContentSources(root, file, digests)
	if len(sources) == 0 {
		return ""
	}
	return sources[0].Text
}

// crawlMarkdown extracts the markdown body from a crawl digest payload,
// falling back to the raw content for records written before the JSON
// envelope existed.
func crawlMarkdown(content string) string {
	var payload struct {
		Markdown string `json:"markdown"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err == nil && payload.Markdown != "" {
		return payload.Markdown
	}
	return content
}

// objectLabels flattens a detection payload into one line per object.
func objectLabels(content string) string {
	var payload struct {
		Objects []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"objects"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return ""
	}
	var lines []string
	for _, obj := range payload.Objects {
		var parts []string
		if obj.Title != "" {
			parts = append(parts, obj.Title)
		}
		if obj.Description != "" {
			parts = append(parts, obj.Description)
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ": "))
		}
	}
	return strings.Join(lines, "\n")
}

// transcriptText extracts text from a transcript payload, preferring
// time-aligned segments, then the full-text field, then the raw content.
func transcriptText(content string) string {
	var payload struct {
		Text     string `json:"text"`
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return content
	}
	if len(payload.Segments) > 0 {
		parts := make([]string, 0, len(payload.Segments))
		for _, seg := range payload.Segments {
			if seg.Text != "" {
				parts = append(parts, strings.TrimSpace(seg.Text))
			}
		}
		return strings.Join(parts, " ")
	}
	if payload.Text != "" {
		return payload.Text
	}
	return content
}
