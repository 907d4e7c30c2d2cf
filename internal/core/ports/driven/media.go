package driven

import (
	"context"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// Detection is the result of object detection on one image.
type Detection struct {
	// Objects are the detected objects with normalised boxes.
	Objects []domain.DetectedObject

	// Width and Height are the image's pixel dimensions.
	Width  int
	Height int
}

// VisionService wraps the vision endpoints of the inference microservice.
type VisionService interface {
	// OCR extracts text from an image file.
	OCR(ctx context.Context, path string) (string, error)

	// Caption generates a natural-language description of an image file.
	Caption(ctx context.Context, path string) (string, error)

	// DetectObjects finds objects in an image file.
	DetectObjects(ctx context.Context, path string) (*Detection, error)

	// Segment produces segmentation masks for an image file, independent
	// of detection. Callers treat failure as best-effort: detection
	// results are kept with nil masks.
	Segment(ctx context.Context, path string) ([]domain.SegmentationMask, error)
}

// Transcript is the result of speech recognition on one media file.
type Transcript struct {
	// Text is the full transcript.
	Text string

	// Language is the detected language code, when reported.
	Language string

	// Segments are time-aligned spans, when the model produces them.
	Segments []TranscriptSegment
}

// TranscriptSegment is one time-aligned span of a transcript.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// SpeechService wraps the speech-recognition endpoint.
type SpeechService interface {
	// Transcribe converts an audio or video file to text.
	Transcribe(ctx context.Context, path string) (*Transcript, error)
}

// DocumentService converts office documents to text.
type DocumentService interface {
	// ConvertToMarkdown renders a document file as Markdown.
	ConvertToMarkdown(ctx context.Context, path string) (string, error)
}

// CrawlResult is the outcome of fetching one URL.
type CrawlResult struct {
	// Title is the page title.
	Title string

	// Markdown is the page content rendered as Markdown.
	Markdown string
}

// CrawlService fetches and extracts web pages.
type CrawlService interface {
	// Crawl fetches a URL and extracts its readable content.
	Crawl(ctx context.Context, url string) (*CrawlResult, error)
}
