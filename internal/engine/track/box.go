package track

import (
	"math"

	"github.com/argus-protocol/argus/internal/engine/detect"
)

// Box is an axis-aligned bounding box, top-left corner plus size, in pixels.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// BoxFromDetection converts a detection's geometry to a Box.
func BoxFromDetection(d detect.Detection) Box {
	return Box{X: d.X, Y: d.Y, W: d.W, H: d.H}
}

// CenterX returns the horizontal centre of the box.
func (b Box) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the vertical centre of the box.
func (b Box) CenterY() float64 { return b.Y + b.H/2 }

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
// Degenerate boxes yield 0.
func IoU(a, b Box) float64 {
	ax2, ay2 := a.X+a.W, a.Y+a.H
	bx2, by2 := b.X+b.W, b.Y+b.H

	ix1 := math.Max(a.X, b.X)
	iy1 := math.Max(a.Y, b.Y)
	ix2 := math.Min(ax2, bx2)
	iy2 := math.Min(ay2, by2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
