// Package haid is a client for the HAID inference microservice, which hosts
// the OCR, captioning, detection, segmentation, speech and document models.
// Files travel as base64 in JSON request bodies.
package haid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// defaultTimeout bounds one inference call. Model runs are slow, so the
// budget is generous.
const defaultTimeout = 5 * time.Minute

// defaultRateLimit keeps the client from flooding the inference host,
// which serialises model runs anyway.
var defaultRateLimit = rate.NewLimiter(rate.Limit(2), 4)

// Client talks to a HAID server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// The one client serves all four media ports.
var (
	_ driven.VisionService   = (*Client)(nil)
	_ driven.SpeechService   = (*Client)(nil)
	_ driven.DocumentService = (*Client)(nil)
	_ driven.CrawlService    = (*Client)(nil)
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the sustained request rate and burst size.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewClient creates a HAID client. apiKey may be empty when the server
// does not require authentication.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    defaultRateLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OCR extracts text from an image file.
func (c *Client) OCR(ctx context.Context, path string) (string, error) {
	image, err := encodeFile(path)
	if err != nil {
		return "", err
	}

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/api/ocr", map[string]any{"image": image}, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("ocr: %s", result.Error)
	}

	return result.Text, nil
}

// Caption generates a natural-language description of an image file.
func (c *Client) Caption(ctx context.Context, path string) (string, error) {
	image, err := encodeFile(path)
	if err != nil {
		return "", err
	}

	var result struct {
		Caption string `json:"caption"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/api/image-captioning", map[string]any{"image": image}, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("captioning: %s", result.Error)
	}

	return result.Caption, nil
}

// DetectObjects finds objects in an image file. Boxes come back normalised
// to [0,1]; the response carries the pixel dimensions for denormalising.
func (c *Client) DetectObjects(ctx context.Context, path string) (*driven.Detection, error) {
	image, err := encodeFile(path)
	if err != nil {
		return nil, err
	}

	var result struct {
		Objects []domain.DetectedObject `json:"objects"`
		Width   int                     `json:"width"`
		Height  int                     `json:"height"`
		Error   string                  `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/api/object-detection", map[string]any{"image": image}, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("object detection: %s", result.Error)
	}

	return &driven.Detection{
		Objects: result.Objects,
		Width:   result.Width,
		Height:  result.Height,
	}, nil
}

// Segment produces segmentation masks for an image file.
func (c *Client) Segment(ctx context.Context, path string) ([]domain.SegmentationMask, error) {
	image, err := encodeFile(path)
	if err != nil {
		return nil, err
	}

	var result struct {
		Masks []domain.SegmentationMask `json:"masks"`
		Error string                    `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/api/segment-anything", map[string]any{"image": image}, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("segmentation: %s", result.Error)
	}

	return result.Masks, nil
}

// Transcribe converts an audio or video file to text.
func (c *Client) Transcribe(ctx context.Context, path string) (*driven.Transcript, error) {
	audio, err := encodeFile(path)
	if err != nil {
		return nil, err
	}

	var result struct {
		Text     string                     `json:"text"`
		Language string                     `json:"language"`
		Segments []driven.TranscriptSegment `json:"segments"`
		Error    string                     `json:"error,omitempty"`
	}
	body := map[string]any{"audio": audio, "diarization": false}
	if err := c.post(ctx, "/api/automatic-speech-recognition", body, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("speech recognition: %s", result.Error)
	}

	return &driven.Transcript{
		Text:     result.Text,
		Language: result.Language,
		Segments: result.Segments,
	}, nil
}

// ConvertToMarkdown renders a document file as Markdown. The filename rides
// along so the server can pick a parser by extension.
func (c *Client) ConvertToMarkdown(ctx context.Context, path string) (string, error) {
	file, err := encodeFile(path)
	if err != nil {
		return "", err
	}

	var result struct {
		Markdown string `json:"markdown"`
		Error    string `json:"error,omitempty"`
	}
	body := map[string]any{
		"file":     file,
		"filename": filepath.Base(path),
		"lib":      "microsoft/markitdown",
	}
	if err := c.post(ctx, "/api/doc-to-markdown", body, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("doc-to-markdown: %s", result.Error)
	}

	return result.Markdown, nil
}

// Crawl fetches a URL and extracts its readable content.
func (c *Client) Crawl(ctx context.Context, url string) (*driven.CrawlResult, error) {
	var result struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Markdown string `json:"markdown"`
		Error    string `json:"error,omitempty"`
	}
	if err := c.post(ctx, "/api/crawl", map[string]any{"url": url}, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("crawl: %s", result.Error)
	}

	markdown := result.Markdown
	if markdown == "" {
		markdown = result.Content
	}

	return &driven.CrawlResult{
		Title:    result.Title,
		Markdown: markdown,
	}, nil
}

// post makes a rate-limited POST request and decodes the JSON response.
func (c *Client) post(ctx context.Context, endpoint string, body map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, truncate(payload, 200))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

// encodeFile reads a file and base64-encodes it for transport.
func encodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
