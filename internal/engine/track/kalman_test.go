package track

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilter(b Box) *kalmanFilter {
	return newKalmanFilter(b, 0.01, 0.01, 0.1)
}

func TestKalmanInitialState(t *testing.T) {
	t.Parallel()

	k := newTestFilter(Box{X: 100, Y: 200, W: 40, H: 80})

	b := k.stateBox()
	assert.InDelta(t, 100, b.X, 1e-9)
	assert.InDelta(t, 200, b.Y, 1e-9)
	assert.InDelta(t, 40, b.W, 1e-9)
	assert.InDelta(t, 80, b.H, 1e-9)

	vx, vy := k.velocity()
	assert.Zero(t, vx)
	assert.Zero(t, vy)
	assert.True(t, k.healthy())
}

func TestKalmanVelocityConvergence(t *testing.T) {
	t.Parallel()

	// Object moving +5 px/frame in x, -2 px/frame in y, constant size.
	k := newTestFilter(Box{X: 100, Y: 200, W: 40, H: 80})
	for i := 1; i <= 20; i++ {
		k.predict()
		require.NoError(t, k.update(Box{
			X: 100 + 5*float64(i),
			Y: 200 - 2*float64(i),
			W: 40, H: 80,
		}))
	}

	vx, vy := k.velocity()
	assert.InDelta(t, 5, vx, 0.5)
	assert.InDelta(t, -2, vy, 0.5)

	b := k.stateBox()
	assert.InDelta(t, 200, b.X, 2)
	assert.InDelta(t, 160, b.Y, 2)
}

func TestKalmanPredictCoasts(t *testing.T) {
	t.Parallel()

	k := newTestFilter(Box{X: 0, Y: 0, W: 10, H: 10})
	for i := 1; i <= 20; i++ {
		k.predict()
		require.NoError(t, k.update(Box{X: 3 * float64(i), Y: 0, W: 10, H: 10}))
	}

	// With no further measurements the estimate should keep moving at the
	// learned velocity.
	before := k.stateBox().CenterX()
	k.predict()
	k.predict()
	after := k.stateBox().CenterX()
	assert.InDelta(t, 6, after-before, 1)
	assert.True(t, k.healthy())
}

func TestKalmanCovarianceStaysSymmetric(t *testing.T) {
	t.Parallel()

	k := newTestFilter(Box{X: 50, Y: 50, W: 20, H: 40})
	for i := 0; i < 50; i++ {
		k.predict()
		require.NoError(t, k.update(Box{X: 50 + float64(i%3), Y: 50, W: 20, H: 40}))
	}
	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			assert.Equal(t, k.p.At(i, j), k.p.At(j, i))
		}
	}
}

func TestKalmanSizeFloor(t *testing.T) {
	t.Parallel()

	// Drive the size estimate toward zero; the reported box must keep a
	// positive size regardless.
	k := newTestFilter(Box{X: 100, Y: 100, W: 5, H: 5})
	for i := 0; i < 30; i++ {
		k.predict()
		require.NoError(t, k.update(Box{X: 100, Y: 100, W: 0.001, H: 0.001}))
	}
	b := k.stateBox()
	assert.Greater(t, b.W, 0.0)
	assert.Greater(t, b.H, 0.0)
	assert.False(t, math.IsNaN(b.X))
}
