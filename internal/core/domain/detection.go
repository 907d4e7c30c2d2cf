package domain

// BoundingBox is an axis-aligned box in [x1, y1, x2, y2] order.
// Detected-object boxes are normalised to [0,1]; mask boxes are in pixels.
type BoundingBox [4]float64

// Width returns x2 - x1.
func (b BoundingBox) Width() float64 { return b[2] - b[0] }

// Height returns y2 - y1.
func (b BoundingBox) Height() float64 { return b[3] - b[1] }

// Area returns the box area, never negative.
func (b BoundingBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Denormalise scales a [0,1] box to pixel space.
func (b BoundingBox) Denormalise(width, height int) BoundingBox {
	return BoundingBox{
		b[0] * float64(width),
		b[1] * float64(height),
		b[2] * float64(width),
		b[3] * float64(height),
	}
}

// RLEMask is a run-length encoded pixel mask.
type RLEMask struct {
	Size   []int `json:"size"`
	Counts []int `json:"counts"`
}

// DetectedObject is one object found in an image by the detection model.
// Box is normalised to [0,1]; Mask is attached after matching against the
// segmentation output and stays nil when no mask qualified.
type DetectedObject struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Box         BoundingBox `json:"bbox"`
	Mask        *RLEMask    `json:"rle,omitempty"`
}

// SegmentationMask is one mask produced by the segmentation model,
// independent of detection. Box is in pixel space.
type SegmentationMask struct {
	Box BoundingBox `json:"bbox"`
	RLE RLEMask     `json:"rle"`
}

// MaskMatch pairs a detected-object index with a segmentation-mask index.
type MaskMatch struct {
	ObjectIndex int
	MaskIndex   int
	IoU         float64
}
