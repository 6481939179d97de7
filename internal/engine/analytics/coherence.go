package analytics

import (
	"math"

	"github.com/argus-protocol/argus/internal/engine/track"
)

// MotionCoherence measures how scattered the crowd's motion directions are,
// as the circular standard deviation of motion angles in degrees. Low values
// mean everyone moves the same way; high values mean chaotic motion.
//
// Only tracks moving faster than minSpeed contribute: the heading of a
// near-stationary track is numerical noise. With fewer than two moving
// tracks the metric is undefined and nil is returned.
func MotionCoherence(views []track.View, minSpeed float64) *float64 {
	var sumSin, sumCos float64
	moving := 0
	for _, v := range views {
		if v.Speed() <= minSpeed {
			continue
		}
		angle := math.Atan2(v.VY, v.VX)
		sumSin += math.Sin(angle)
		sumCos += math.Cos(angle)
		moving++
	}
	if moving < 2 {
		return nil
	}

	// R is the mean resultant length: 1 for perfectly aligned headings,
	// 0 for a uniform scatter. Dispersion is sqrt(2(1-R)), which stays
	// bounded (max ~81.03 degrees) so fixed thresholds remain meaningful.
	n := float64(moving)
	r := math.Hypot(sumCos/n, sumSin/n)
	if r > 1 {
		r = 1
	}
	disp := math.Sqrt(2*(1-r)) * 180 / math.Pi
	return &disp
}
