package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-protocol/argus/internal/engine/track"
)

func movingView(vx, vy float64) track.View {
	return track.View{VX: vx, VY: vy, Box: track.Box{W: 40, H: 80}}
}

func TestMotionCoherence(t *testing.T) {
	t.Parallel()

	t.Run("nil with no tracks", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, MotionCoherence(nil, 0.1))
	})

	t.Run("nil with one moving track", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, MotionCoherence([]track.View{movingView(5, 0)}, 0.1))
	})

	t.Run("slow tracks do not count as moving", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(5, 0),
			movingView(0.05, 0), // below min speed
			movingView(0, 0.09),
		}
		assert.Nil(t, MotionCoherence(views, 0.1))
	})

	t.Run("aligned motion is fully coherent", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(5, 0),
			movingView(3, 0),
			movingView(8, 0),
		}
		got := MotionCoherence(views, 0.1)
		require.NotNil(t, got)
		assert.InDelta(t, 0, *got, 1e-9)
	})

	t.Run("aligned direction ignores speed differences", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(1, 1),
			movingView(10, 10),
		}
		got := MotionCoherence(views, 0.1)
		require.NotNil(t, got)
		assert.InDelta(t, 0, *got, 1e-9)
	})

	t.Run("opposed motion is maximally scattered", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(5, 0),
			movingView(-5, 0),
		}
		got := MotionCoherence(views, 0.1)
		require.NotNil(t, got)
		// R = 0 gives sqrt(2) radians.
		want := math.Sqrt(2) * 180 / math.Pi
		assert.InDelta(t, want, *got, 1e-9)
	})

	t.Run("four-way scatter is maximally scattered", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(5, 0),
			movingView(-5, 0),
			movingView(0, 5),
			movingView(0, -5),
		}
		got := MotionCoherence(views, 0.1)
		require.NotNil(t, got)
		want := math.Sqrt(2) * 180 / math.Pi
		assert.InDelta(t, want, *got, 1e-9)
	})

	t.Run("partial scatter lands between the extremes", func(t *testing.T) {
		t.Parallel()
		views := []track.View{
			movingView(5, 0),
			movingView(5, 1),
			movingView(5, -2),
			movingView(-1, 0),
		}
		got := MotionCoherence(views, 0.1)
		require.NotNil(t, got)
		assert.Greater(t, *got, 0.0)
		assert.Less(t, *got, math.Sqrt(2)*180/math.Pi)
	})
}
