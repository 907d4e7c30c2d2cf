package digesters

import (
	"sort"

	"github.com/lifedex/lifedex/internal/core/domain"
)

// DefaultIoUThreshold is the minimum overlap for a detected object and a
// segmentation mask to be considered the same region.
const DefaultIoUThreshold = 0.3

// IoU returns the intersection-over-union of two pixel-space boxes.
// Non-overlapping boxes score 0; a degenerate pair with zero union also
// scores 0 rather than dividing by zero.
func IoU(a, b domain.BoundingBox) float64 {
	ix1 := maxFloat(a[0], b[0])
	iy1 := maxFloat(a[1], b[1])
	ix2 := minFloat(a[2], b[2])
	iy2 := minFloat(a[3], b[3])

	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	intersection := (ix2 - ix1) * (iy2 - iy1)

	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// MatchMasks pairs detected objects with segmentation masks. Object boxes
// are normalised to [0,1] and are scaled to pixel space by the image
// dimensions before comparison; mask boxes are already in pixels.
//
// Matching is greedy: all pairs at or above the threshold are ranked by IoU
// descending and assigned in order, each object and each mask at most once.
// Ties break on the lower object index, then the lower mask index, so the
// result is deterministic. The globally optimal assignment is not sought.
func MatchMasks(objects []domain.DetectedObject, masks []domain.SegmentationMask, width, height int, threshold float64) []domain.MaskMatch {
	if len(objects) == 0 || len(masks) == 0 {
		return nil
	}

	var candidates []domain.MaskMatch
	for oi := range objects {
		box := objects[oi].Box.Denormalise(width, height)
		for mi := range masks {
			iou := IoU(box, masks[mi].Box)
			if iou >= threshold {
				candidates = append(candidates, domain.MaskMatch{
					ObjectIndex: oi,
					MaskIndex:   mi,
					IoU:         iou,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IoU != b.IoU {
			return a.IoU > b.IoU
		}
		if a.ObjectIndex != b.ObjectIndex {
			return a.ObjectIndex < b.ObjectIndex
		}
		return a.MaskIndex < b.MaskIndex
	})

	usedObjects := make(map[int]bool, len(objects))
	usedMasks := make(map[int]bool, len(masks))
	var matches []domain.MaskMatch
	for _, c := range candidates {
		if usedObjects[c.ObjectIndex] || usedMasks[c.MaskIndex] {
			continue
		}
		usedObjects[c.ObjectIndex] = true
		usedMasks[c.MaskIndex] = true
		matches = append(matches, c)
	}
	return matches
}

// AttachMasks assigns each matched mask's RLE to its object in place.
// Unmatched objects keep a nil mask.
func AttachMasks(objects []domain.DetectedObject, masks []domain.SegmentationMask, width, height int, threshold float64) {
	for _, m := range MatchMasks(objects, masks, width, height, threshold) {
		rle := masks[m.MaskIndex].RLE
		objects[m.ObjectIndex].Mask = &rle
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
