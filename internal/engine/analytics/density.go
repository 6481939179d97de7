package analytics

import (
	"github.com/argus-protocol/argus/internal/engine/track"
)

// DensityGrid partitions the frame into rows×cols cells and counts confirmed
// track centroids per cell. Counts are row-major.
type DensityGrid struct {
	Rows   int
	Cols   int
	Counts []int
}

// ComputeDensity bins track centroids into the grid. Centroids that drift
// outside the frame (the estimator can overshoot at the edges) are clamped
// to the nearest border cell rather than dropped, so the grid total always
// equals the confirmed track count.
func ComputeDensity(views []track.View, frameW, frameH, rows, cols int) DensityGrid {
	g := DensityGrid{
		Rows:   rows,
		Cols:   cols,
		Counts: make([]int, rows*cols),
	}
	cellW := float64(frameW) / float64(cols)
	cellH := float64(frameH) / float64(rows)

	for _, v := range views {
		col := clampIndex(int(v.Box.CenterX()/cellW), cols)
		row := clampIndex(int(v.Box.CenterY()/cellH), rows)
		g.Counts[row*cols+col]++
	}
	return g
}

// At returns the count at (row, col).
func (g DensityGrid) At(row, col int) int {
	return g.Counts[row*g.Cols+col]
}

// Max returns the highest cell count.
func (g DensityGrid) Max() int {
	max := 0
	for _, c := range g.Counts {
		if c > max {
			max = c
		}
	}
	return max
}

// Total returns the sum over all cells.
func (g DensityGrid) Total() int {
	total := 0
	for _, c := range g.Counts {
		total += c
	}
	return total
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
