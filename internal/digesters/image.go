package digesters

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// ImageOCR extracts printed and handwritten text from images.
type ImageOCR struct {
	vision driven.VisionService
	root   string
}

// NewImageOCR creates the OCR digester.
func NewImageOCR(vision driven.VisionService, root string) *ImageOCR {
	return &ImageOCR{vision: vision, root: root}
}

func (d *ImageOCR) Name() string        { return DigesterImageOCR }
func (d *ImageOCR) Label() string       { return "Image OCR" }
func (d *ImageOCR) Description() string { return "Extract text from images" }

func (d *ImageOCR) CanDigest(file *domain.FileRecord) bool {
	return isImage(file.Mime())
}

func (d *ImageOCR) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	text, err := d.vision.OCR(ctx, filepath.Join(d.root, file.Path))
	if err != nil {
		return nil, fmt.Errorf("running OCR on %s: %w", file.Path, err)
	}
	var content *string
	if text != "" {
		content = &text
	}
	return []domain.DigestInput{completedInput(file.Path, DigesterImageOCR, content)}, nil
}

// ImageCaption generates a short natural-language description of an image.
type ImageCaption struct {
	vision driven.VisionService
	root   string
}

// NewImageCaption creates the captioning digester.
func NewImageCaption(vision driven.VisionService, root string) *ImageCaption {
	return &ImageCaption{vision: vision, root: root}
}

func (d *ImageCaption) Name() string        { return DigesterImageCaption }
func (d *ImageCaption) Label() string       { return "Image Captioning" }
func (d *ImageCaption) Description() string { return "Describe images in natural language" }

func (d *ImageCaption) CanDigest(file *domain.FileRecord) bool {
	return isImage(file.Mime())
}

func (d *ImageCaption) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	caption, err := d.vision.Caption(ctx, filepath.Join(d.root, file.Path))
	if err != nil {
		return nil, fmt.Errorf("captioning %s: %w", file.Path, err)
	}
	var content *string
	if caption != "" {
		content = &caption
	}
	return []domain.DigestInput{completedInput(file.Path, DigesterImageCaption, content)}, nil
}
