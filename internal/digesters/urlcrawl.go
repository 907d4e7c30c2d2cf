package digesters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// URLCrawl fetches the page behind a bookmark note. A bookmark note is a
// markdown file whose content is a single URL; the crawled page becomes the
// note's real content.
type URLCrawl struct {
	crawler driven.CrawlService
}

// NewURLCrawl creates the crawl digester.
func NewURLCrawl(crawler driven.CrawlService) *URLCrawl {
	return &URLCrawl{crawler: crawler}
}

func (d *URLCrawl) Name() string        { return DigesterURLCrawl }
func (d *URLCrawl) Label() string       { return "URL Crawler" }
func (d *URLCrawl) Description() string { return "Fetch and extract content from bookmarked URLs" }

// CanDigest matches markdown files whose text is a bare HTTP(S) URL.
func (d *URLCrawl) CanDigest(file *domain.FileRecord) bool {
	if !isMarkdown(file.Path) || file.TextPreview == nil {
		return false
	}
	return isHTTPURL(strings.TrimSpace(*file.TextPreview))
}

func (d *URLCrawl) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	url := ""
	if file.TextPreview != nil {
		url = strings.TrimSpace(*file.TextPreview)
	}
	if !isHTTPURL(url) {
		// Content changed since the capability check; nothing to crawl.
		return []domain.DigestInput{completedInput(file.Path, DigesterURLCrawl, nil)}, nil
	}

	result, err := d.crawler.Crawl(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("crawling %s: %w", url, err)
	}

	payload, err := json.Marshal(map[string]string{
		"url":      url,
		"title":    result.Title,
		"markdown": result.Markdown,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding crawl result: %w", err)
	}
	content := string(payload)
	return []domain.DigestInput{completedInput(file.Path, DigesterURLCrawl, &content)}, nil
}

// completedInput builds a completed digest upsert.
func completedInput(path, digester string, content *string) domain.DigestInput {
	return domain.DigestInput{
		FilePath: path,
		Digester: digester,
		Status:   domain.DigestCompleted,
		Content:  content,
	}
}
