package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/argus-protocol/argus/internal/engine/track"
)

func viewAt(x, y float64) track.View {
	return track.View{Box: track.Box{X: x - 20, Y: y - 40, W: 40, H: 80}}
}

func TestComputeDensity(t *testing.T) {
	t.Parallel()

	t.Run("bins centroids into cells", func(t *testing.T) {
		t.Parallel()
		// 640x480 over a 10x10 grid: cells are 64x48.
		g := ComputeDensity([]track.View{
			viewAt(32, 24),   // cell (0,0)
			viewAt(100, 24),  // cell (0,1)
			viewAt(100, 30),  // cell (0,1) again
			viewAt(620, 470), // cell (9,9)
		}, 640, 480, 10, 10)

		assert.Equal(t, 1, g.At(0, 0))
		assert.Equal(t, 2, g.At(0, 1))
		assert.Equal(t, 1, g.At(9, 9))
		assert.Equal(t, 2, g.Max())
		assert.Equal(t, 4, g.Total())
	})

	t.Run("grid total equals track count", func(t *testing.T) {
		t.Parallel()
		views := make([]track.View, 0, 37)
		for i := 0; i < 37; i++ {
			views = append(views, viewAt(float64(17*i%640), float64(13*i%480)))
		}
		g := ComputeDensity(views, 640, 480, 10, 10)
		assert.Equal(t, 37, g.Total())
	})

	t.Run("clamps centroids outside the frame", func(t *testing.T) {
		t.Parallel()
		g := ComputeDensity([]track.View{
			viewAt(-50, -50),
			viewAt(10000, 10000),
		}, 640, 480, 10, 10)
		assert.Equal(t, 1, g.At(0, 0))
		assert.Equal(t, 1, g.At(9, 9))
		assert.Equal(t, 2, g.Total())
	})

	t.Run("empty views", func(t *testing.T) {
		t.Parallel()
		g := ComputeDensity(nil, 640, 480, 10, 10)
		assert.Equal(t, 0, g.Max())
		assert.Equal(t, 0, g.Total())
		assert.Len(t, g.Counts, 100)
	})
}
