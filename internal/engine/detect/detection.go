package detect

import (
	"math"
	"time"
)

// Detection is a single person bounding box reported by an external detector
// for one frame. Coordinates are pixels in the configured frame resolution,
// top-left origin, box given as top-left corner plus size.
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

// CenterX returns the horizontal centre of the box.
func (d Detection) CenterX() float64 { return d.X + d.W/2 }

// CenterY returns the vertical centre of the box.
func (d Detection) CenterY() float64 { return d.Y + d.H/2 }

// Frame is one frame's worth of detections, already resolved by the
// external detector. The pipeline consumes frames strictly in order.
type Frame struct {
	Seq        int64       `json:"seq"`
	Timestamp  time.Time   `json:"ts"`
	Detections []Detection `json:"detections"`
}

// DropCounts records how many detections were rejected at the ingestion
// boundary, by reason. Dropping is silent on the normal path but these
// counters are surfaced through pipeline stats for diagnostics.
type DropCounts struct {
	NonFinite     int `json:"non_finite"`
	EmptyBox      int `json:"empty_box"`
	OutOfFrame    int `json:"out_of_frame"`
	LowConfidence int `json:"low_confidence"`
}

// Total returns the sum across all drop reasons.
func (d DropCounts) Total() int {
	return d.NonFinite + d.EmptyBox + d.OutOfFrame + d.LowConfidence
}

// Add accumulates another set of counts into d.
func (d *DropCounts) Add(o DropCounts) {
	d.NonFinite += o.NonFinite
	d.EmptyBox += o.EmptyBox
	d.OutOfFrame += o.OutOfFrame
	d.LowConfidence += o.LowConfidence
}

// Validator screens raw detections before they reach association.
// Malformed boxes (NaN/Inf values, non-positive size, centroid outside the
// frame) and low-confidence detections are dropped.
type Validator struct {
	FrameWidth    float64
	FrameHeight   float64
	MinConfidence float64
}

// NewValidator builds a Validator for the given frame resolution.
func NewValidator(frameWidth, frameHeight int, minConfidence float64) *Validator {
	return &Validator{
		FrameWidth:    float64(frameWidth),
		FrameHeight:   float64(frameHeight),
		MinConfidence: minConfidence,
	}
}

// Filter returns the detections that pass validation, along with drop
// counts for the rejected ones. The input slice is not modified.
func (v *Validator) Filter(dets []Detection) ([]Detection, DropCounts) {
	kept := make([]Detection, 0, len(dets))
	var drops DropCounts

	for _, d := range dets {
		if !isFinite(d.X) || !isFinite(d.Y) || !isFinite(d.W) || !isFinite(d.H) || !isFinite(d.Confidence) {
			drops.NonFinite++
			continue
		}
		if d.W <= 0 || d.H <= 0 {
			drops.EmptyBox++
			continue
		}
		cx, cy := d.CenterX(), d.CenterY()
		if cx < 0 || cx >= v.FrameWidth || cy < 0 || cy >= v.FrameHeight {
			drops.OutOfFrame++
			continue
		}
		if d.Confidence < v.MinConfidence {
			drops.LowConfidence++
			continue
		}
		kept = append(kept, d)
	}

	return kept, drops
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
