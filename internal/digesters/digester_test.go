package digesters

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// stubCompletion returns canned responses and records the last user prompt.
type stubCompletion struct {
	text       string
	json       []byte
	err        error
	lastPrompt string
}

func (s *stubCompletion) Complete(_ context.Context, _, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.text, s.err
}

func (s *stubCompletion) CompleteJSON(_ context.Context, _, _ string, _ string, _ []byte) ([]byte, error) {
	return s.json, s.err
}

// stubVision returns canned vision results.
type stubVision struct {
	ocr        string
	caption    string
	detection  *driven.Detection
	masks      []domain.SegmentationMask
	segmentErr error
}

func (s *stubVision) OCR(_ context.Context, _ string) (string, error)     { return s.ocr, nil }
func (s *stubVision) Caption(_ context.Context, _ string) (string, error) { return s.caption, nil }
func (s *stubVision) DetectObjects(_ context.Context, _ string) (*driven.Detection, error) {
	return s.detection, nil
}
func (s *stubVision) Segment(_ context.Context, _ string) ([]domain.SegmentationMask, error) {
	return s.masks, s.segmentErr
}

type stubSpeech struct {
	transcript *driven.Transcript
	err        error
}

func (s *stubSpeech) Transcribe(_ context.Context, _ string) (*driven.Transcript, error) {
	return s.transcript, s.err
}

type stubCrawler struct {
	result *driven.CrawlResult
	err    error
}

func (s *stubCrawler) Crawl(_ context.Context, _ string) (*driven.CrawlResult, error) {
	return s.result, s.err
}

func strptr(s string) *string { return &s }

func imageFile(path string) *domain.FileRecord {
	return &domain.FileRecord{Path: path, MimeType: strptr("image/jpeg")}
}

func audioFile(path string) *domain.FileRecord {
	return &domain.FileRecord{Path: path, MimeType: strptr("audio/mpeg")}
}

func TestRegistryPreservesRegistrationOrder(t *testing.T) {
	vision := &stubVision{}
	completion := &stubCompletion{}
	r := DefaultRegistry("/data", Services{
		Crawler:    &stubCrawler{},
		Vision:     vision,
		Speech:     &stubSpeech{},
		Completion: completion,
	})

	want := []string{
		DigesterURLCrawl,
		DigesterImageOCR,
		DigesterImageCaption,
		DigesterImageObjects,
		DigesterSpeechTranscript,
		DigesterTranscriptCleanup,
		DigesterSummary,
		DigesterTags,
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %d digesters, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRegistrySkipsUnconfiguredServices(t *testing.T) {
	r := DefaultRegistry("/data", Services{Completion: &stubCompletion{}})

	if r.Has(DigesterImageOCR) || r.Has(DigesterSpeechTranscript) || r.Has(DigesterURLCrawl) {
		t.Error("expected vendor digesters to be absent without their services")
	}
	if r.Has(DigesterTranscriptCleanup) {
		t.Error("expected transcript cleanup to be absent without a speech service")
	}
	if !r.Has(DigesterSummary) || !r.Has(DigesterTags) {
		t.Error("expected text digesters to be present with a completion service")
	}
}

func TestCapabilityPredicates(t *testing.T) {
	vision := &stubVision{}
	tests := []struct {
		name string
		d    Digester
		file *domain.FileRecord
		want bool
	}{
		{"ocr accepts images", NewImageOCR(vision, ""), imageFile("a.jpg"), true},
		{"ocr rejects audio", NewImageOCR(vision, ""), audioFile("a.mp3"), false},
		{"speech accepts audio", NewSpeechTranscript(&stubSpeech{}, ""), audioFile("a.mp3"), true},
		{"speech accepts video", NewSpeechTranscript(&stubSpeech{}, ""), &domain.FileRecord{Path: "a.mp4", MimeType: strptr("video/mp4")}, true},
		{"docs accept pdf", NewDocToMarkdown(nil, ""), &domain.FileRecord{Path: "a.pdf", MimeType: strptr("application/pdf")}, true},
		{"docs reject plain text", NewDocToMarkdown(nil, ""), &domain.FileRecord{Path: "a.txt", MimeType: strptr("text/plain")}, false},
		{"crawl accepts url note", NewURLCrawl(nil), &domain.FileRecord{Path: "a.md", TextPreview: strptr("https://example.com")}, true},
		{"crawl rejects prose note", NewURLCrawl(nil), &domain.FileRecord{Path: "a.md", TextPreview: strptr("some notes")}, false},
		{"crawl rejects non-markdown", NewURLCrawl(nil), &domain.FileRecord{Path: "a.txt", TextPreview: strptr("https://example.com")}, false},
		{"summary rejects folders", NewSummary(&stubCompletion{}, ""), &domain.FileRecord{Path: "dir", IsFolder: true}, false},
		{"tags accept files", NewTags(&stubCompletion{}, ""), imageFile("a.jpg"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.CanDigest(tt.file); got != tt.want {
				t.Errorf("CanDigest = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranscriptCleanupWaitsForTranscription(t *testing.T) {
	d := NewTranscriptCleanup(&stubCompletion{text: "cleaned"})
	file := audioFile("call.mp3")

	_, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterSpeechTranscript, Status: domain.DigestPending},
	})
	if !errors.Is(err, domain.ErrDependencyNotReady) {
		t.Fatalf("expected ErrDependencyNotReady, got %v", err)
	}

	_, err = d.Digest(context.Background(), file, nil)
	if !errors.Is(err, domain.ErrDependencyNotReady) {
		t.Fatalf("expected ErrDependencyNotReady with no upstream record, got %v", err)
	}
}

func TestTranscriptCleanupCleansCompletedTranscript(t *testing.T) {
	d := NewTranscriptCleanup(&stubCompletion{text: "Cleaned transcript."})
	file := audioFile("call.mp3")
	transcript, _ := json.Marshal(driven.Transcript{Text: "uh so like cleaned transcript"})

	inputs, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterSpeechTranscript, Status: domain.DigestCompleted, Content: strptr(string(transcript))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Status != domain.DigestCompleted {
		t.Fatalf("expected one completed input, got %v", inputs)
	}
	if inputs[0].Content == nil || *inputs[0].Content != "Cleaned transcript." {
		t.Errorf("unexpected content %v", inputs[0].Content)
	}
}

func TestSummaryWaitsForTextSources(t *testing.T) {
	d := NewSummary(&stubCompletion{text: "summary"}, "")
	file := imageFile("photo.jpg")

	_, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterImageOCR, Status: domain.DigestInProgress},
	})
	if !errors.Is(err, domain.ErrDependencyNotReady) {
		t.Fatalf("expected ErrDependencyNotReady, got %v", err)
	}
}

func TestSummaryCompletesEmptyWithoutText(t *testing.T) {
	d := NewSummary(&stubCompletion{text: "summary"}, "")
	file := imageFile("photo.jpg")

	inputs, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterImageOCR, Status: domain.DigestCompleted},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Status != domain.DigestCompleted || inputs[0].Content != nil {
		t.Fatalf("expected empty completion, got %v", inputs)
	}
}

func TestSummaryPromptsWithBestSourceOnly(t *testing.T) {
	completion := &stubCompletion{text: "summary"}
	d := NewSummary(completion, "")
	file := imageFile("photo.jpg")

	// OCR outranks the caption; only the best source feeds the prompt.
	_, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterImageOCR, Status: domain.DigestCompleted, Content: strptr("Boarding pass LX 318 seat 14A")},
		{FilePath: file.Path, Digester: DigesterImageCaption, Status: domain.DigestCompleted, Content: strptr("A photo of a boarding pass")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completion.lastPrompt != "Boarding pass LX 318 seat 14A" {
		t.Errorf("expected the OCR text alone, got %q", completion.lastPrompt)
	}
}

func TestBestTextPrefersPreviewOverDigests(t *testing.T) {
	file := &domain.FileRecord{Path: "note.md", TextPreview: strptr("grocery list\nmilk, eggs")}
	digests := []domain.Digest{
		{FilePath: file.Path, Digester: DigesterURLCrawl, Status: domain.DigestCompleted, Content: strptr("crawled page")},
	}
	if got := BestText("", file, digests); got != "grocery list\nmilk, eggs" {
		t.Errorf("expected the preview text, got %q", got)
	}

	// A URL-only preview is a pointer, not content; fall through to the
	// crawl result.
	file.TextPreview = strptr("https://example.com/post")
	if got := BestText("", file, digests); got != "crawled page" {
		t.Errorf("expected the crawl content, got %q", got)
	}
}

func TestTagsNormalisesPayload(t *testing.T) {
	d := NewTags(&stubCompletion{json: []byte(`{"tags":["travel","receipt"],"extra":"dropped"}`)}, "")
	file := imageFile("receipt.jpg")

	inputs, err := d.Digest(context.Background(), file, []domain.Digest{
		{FilePath: file.Path, Digester: DigesterImageOCR, Status: domain.DigestCompleted, Content: strptr("Total due: 42.00 EUR paid by card")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inputs[0].Content == nil || *inputs[0].Content != `{"tags":["travel","receipt"]}` {
		t.Errorf("unexpected content %v", inputs[0].Content)
	}
}

func TestImageObjectsToleratesSegmentationFailure(t *testing.T) {
	vision := &stubVision{
		detection: &driven.Detection{
			Objects: []domain.DetectedObject{{Title: "cat", Box: domain.BoundingBox{0.1, 0.1, 0.5, 0.5}}},
			Width:   640,
			Height:  480,
		},
		segmentErr: errors.New("segmentation model offline"),
	}
	d := NewImageObjects(vision, "")

	inputs, err := d.Digest(context.Background(), imageFile("cat.jpg"), nil)
	if err != nil {
		t.Fatalf("expected detection to survive segmentation failure, got %v", err)
	}

	var payload struct {
		Objects []domain.DetectedObject `json:"objects"`
	}
	if err := json.Unmarshal([]byte(*inputs[0].Content), &payload); err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if len(payload.Objects) != 1 || payload.Objects[0].Mask != nil {
		t.Errorf("expected one maskless object, got %+v", payload.Objects)
	}
}

func TestImageObjectsAttachesMatchingMask(t *testing.T) {
	vision := &stubVision{
		detection: &driven.Detection{
			Objects: []domain.DetectedObject{{Title: "cat", Box: domain.BoundingBox{0, 0, 0.5, 0.5}}},
			Width:   100,
			Height:  100,
		},
		masks: []domain.SegmentationMask{
			{Box: domain.BoundingBox{0, 0, 50, 50}, RLE: domain.RLEMask{Size: []int{100, 100}, Counts: []int{7}}},
		},
	}
	d := NewImageObjects(vision, "")

	inputs, err := d.Digest(context.Background(), imageFile("cat.jpg"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Objects []domain.DetectedObject `json:"objects"`
	}
	if err := json.Unmarshal([]byte(*inputs[0].Content), &payload); err != nil {
		t.Fatalf("decoding content: %v", err)
	}
	if payload.Objects[0].Mask == nil {
		t.Fatal("expected mask to be attached")
	}
	if payload.Objects[0].Mask.Counts[0] != 7 {
		t.Errorf("unexpected mask payload %+v", payload.Objects[0].Mask)
	}
}

func TestContentSourcesPriorityAndFileFallback(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "note.md"), []byte("disk text"), 0o644); err != nil {
		t.Fatal(err)
	}
	file := &domain.FileRecord{Path: "note.md"}
	digests := []domain.Digest{
		{FilePath: "note.md", Digester: DigesterImageOCR, Status: domain.DigestCompleted, Content: strptr("ocr text")},
		{FilePath: "note.md", Digester: DigesterURLCrawl, Status: domain.DigestCompleted, Content: strptr(`{"markdown":"crawled page"}`)},
	}

	sources := ContentSources(root, file, digests)

	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %v", sources)
	}
	if sources[0].SourceType != DigesterURLCrawl || sources[0].Text != "crawled page" {
		t.Errorf("expected crawl content first, got %+v", sources[0])
	}
	if sources[1].SourceType != DigesterImageOCR {
		t.Errorf("expected OCR second, got %+v", sources[1])
	}
	if sources[2].SourceType != sourceFile || sources[2].Text != "disk text" {
		t.Errorf("expected file text last, got %+v", sources[2])
	}
}

func TestContentSourcesPrefersCleanedTranscript(t *testing.T) {
	file := audioFile("call.mp3")
	digests := []domain.Digest{
		{FilePath: file.Path, Digester: DigesterSpeechTranscript, Status: domain.DigestCompleted, Content: strptr(`{"text":"raw words"}`)},
		{FilePath: file.Path, Digester: DigesterTranscriptCleanup, Status: domain.DigestCompleted, Content: strptr("Clean words.")},
	}

	sources := ContentSources("", file, digests)

	if len(sources) != 1 || sources[0].SourceType != DigesterTranscriptCleanup {
		t.Fatalf("expected only the cleaned transcript, got %v", sources)
	}
}

func TestContentSourcesSkipsIncompleteDigests(t *testing.T) {
	file := imageFile("photo.jpg")
	digests := []domain.Digest{
		{FilePath: file.Path, Digester: DigesterImageOCR, Status: domain.DigestFailed, Content: strptr("partial")},
		{FilePath: file.Path, Digester: DigesterImageCaption, Status: domain.DigestPending},
	}

	if sources := ContentSources("", file, digests); len(sources) != 0 {
		t.Errorf("expected no sources from incomplete digests, got %v", sources)
	}
}

func TestTranscriptTextPrefersSegments(t *testing.T) {
	content := `{"text":"full text","segments":[{"text":"first part"},{"text":"second part"}]}`
	if got := transcriptText(content); got != "first part second part" {
		t.Errorf("expected joined segments, got %q", got)
	}
	if got := transcriptText(`{"text":"only text"}`); got != "only text" {
		t.Errorf("expected text field fallback, got %q", got)
	}
	if got := transcriptText("plain words"); got != "plain words" {
		t.Errorf("expected raw fallback, got %q", got)
	}
}
