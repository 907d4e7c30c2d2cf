package digesters

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/lifedex/lifedex/internal/core/domain"
	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// ImageObjects detects objects in images and enriches each with a
// segmentation mask. Detection and segmentation are independent model
// calls whose outputs are reconciled by box overlap; segmentation is
// best-effort and a failure there keeps the detection result, just
// without masks.
type ImageObjects struct {
	vision    driven.VisionService
	root      string
	threshold float64
}

// NewImageObjects creates the object detection digester.
func NewImageObjects(vision driven.VisionService, root string) *ImageObjects {
	return &ImageObjects{vision: vision, root: root, threshold: DefaultIoUThreshold}
}

func (d *ImageObjects) Name() string        { return DigesterImageObjects }
func (d *ImageObjects) Label() string       { return "Object Detection" }
func (d *ImageObjects) Description() string { return "Detect and segment objects in images" }

func (d *ImageObjects) CanDigest(file *domain.FileRecord) bool {
	return isImage(file.Mime())
}

func (d *ImageObjects) Digest(ctx context.Context, file *domain.FileRecord, _ []domain.Digest) ([]domain.DigestInput, error) {
	path := filepath.Join(d.root, file.Path)

	detection, err := d.vision.DetectObjects(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("detecting objects in %s: %w", file.Path, err)
	}

	if len(detection.Objects) > 0 {
		masks, err := d.vision.Segment(ctx, path)
		if err == nil && len(masks) > 0 {
			AttachMasks(detection.Objects, masks, detection.Width, detection.Height, d.threshold)
		}
	}

	payload, err := json.Marshal(map[string]any{
		"objects": detection.Objects,
		"width":   detection.Width,
		"height":  detection.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding detection result: %w", err)
	}
	content := string(payload)
	return []domain.DigestInput{completedInput(file.Path, DigesterImageObjects, &content)}, nil
}
