package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/analytics"
	"github.com/argus-protocol/argus/internal/engine/detect"
)

func frame(seq int64, dets ...detect.Detection) *detect.Frame {
	return &detect.Frame{
		Seq:        seq,
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * 100 * time.Millisecond),
		Detections: dets,
	}
}

func det(x, y float64) detect.Detection {
	return detect.Detection{X: x, Y: y, W: 40, H: 80, Confidence: 0.9}
}

func TestPipelineProcessFrame(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})

	// One person, stationary. Confirmed on the third hit.
	snap := p.ProcessFrame(frame(1, det(100, 100)))
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.PersonCount, "tentative tracks stay out of analytics")

	p.ProcessFrame(frame(2, det(100, 100)))
	snap = p.ProcessFrame(frame(3, det(100, 100)))
	assert.Equal(t, 1, snap.PersonCount)
	assert.Equal(t, int64(3), snap.Frame)
	assert.Equal(t, analytics.StatusNormal, snap.Status)
	assert.False(t, snap.Stale)

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.FramesProcessed)
	assert.Equal(t, int64(3), stats.DetectionsSeen)
	assert.Equal(t, int64(3), stats.DetectionsKept)
	assert.Equal(t, 1, stats.Tracker.ActiveTracks)
}

func TestPipelineDropCounting(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})
	snap := p.ProcessFrame(frame(1,
		det(100, 100),
		detect.Detection{X: 100, Y: 100, W: 40, H: 80, Confidence: 0.1}, // below min confidence
		detect.Detection{X: 100, Y: 100, W: -1, H: 80, Confidence: 0.9}, // degenerate
	))
	require.NotNil(t, snap)

	stats := p.Stats()
	assert.Equal(t, int64(3), stats.DetectionsSeen)
	assert.Equal(t, int64(1), stats.DetectionsKept)
	assert.Equal(t, 1, stats.Drops.LowConfidence)
	assert.Equal(t, 1, stats.Drops.EmptyBox)
}

func TestPipelineStaleHoldover(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})

	t.Run("nil frame before first input yields nil", func(t *testing.T) {
		assert.Nil(t, p.ProcessFrame(nil))
		assert.Nil(t, p.LatestSnapshot())
	})

	t.Run("nil frame republishes last snapshot as stale", func(t *testing.T) {
		real := p.ProcessFrame(frame(1, det(100, 100)))
		require.NotNil(t, real)

		stale := p.ProcessFrame(nil)
		require.NotNil(t, stale)
		assert.True(t, stale.Stale)
		assert.Equal(t, real.Frame, stale.Frame)
		assert.Equal(t, real.PersonCount, stale.PersonCount)
		assert.False(t, real.Stale, "original snapshot must not be mutated")

		latest := p.LatestSnapshot()
		assert.True(t, latest.Stale)

		stats := p.Stats()
		assert.Equal(t, int64(1), stats.FramesProcessed, "stale frames are not processed frames")
		assert.Equal(t, int64(1), stats.StaleFrames)
	})

	t.Run("next real frame clears staleness", func(t *testing.T) {
		snap := p.ProcessFrame(frame(2, det(100, 100)))
		assert.False(t, snap.Stale)
	})
}

func TestPipelineSinks(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})
	var got []*analytics.Snapshot
	p.AddSink(SinkFunc(func(s *analytics.Snapshot) { got = append(got, s) }))

	p.ProcessFrame(frame(1, det(100, 100)))
	p.ProcessFrame(nil) // stale republish also reaches sinks
	p.ProcessFrame(frame(2, det(100, 100)))

	require.Len(t, got, 3)
	assert.False(t, got[0].Stale)
	assert.True(t, got[1].Stale)
	assert.False(t, got[2].Stale)
}

func TestPipelineStatusEscalation(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})

	// Six people packed into one grid cell. Density critical threshold is 6.
	crowd := func(seq int64) *detect.Frame {
		dets := make([]detect.Detection, 6)
		for i := range dets {
			dets[i] = det(100+2*float64(i), 100)
		}
		return frame(seq, dets...)
	}

	var snap *analytics.Snapshot
	for seq := int64(1); seq <= 4; seq++ {
		snap = p.ProcessFrame(crowd(seq))
	}
	require.NotNil(t, snap)
	assert.Equal(t, 6, snap.PersonCount)
	assert.Equal(t, 6, snap.MaxDensity)
	assert.Equal(t, analytics.StatusCritical, snap.Status)
	assert.Equal(t, analytics.StatusCritical, p.Stats().LastStatus)
}

func TestPipelineRunDrainsSource(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})
	detections := make([][]detect.Detection, 5)
	for i := range detections {
		detections[i] = []detect.Detection{det(100+3*float64(i), 100)}
	}
	src := detect.NewScriptedSource(time.Now(), 100*time.Millisecond, detections)

	require.NoError(t, p.Run(context.Background(), src, 0))

	stats := p.Stats()
	assert.Equal(t, int64(5), stats.FramesProcessed)
	require.NotNil(t, p.LatestSnapshot())
	assert.Equal(t, 1, p.LatestSnapshot().PersonCount)
}

func TestPipelineRunHonorsContext(t *testing.T) {
	t.Parallel()

	p := New(&config.TuningConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := detect.NewScriptedSource(time.Now(), 0, make([][]detect.Detection, 1000))
	err := p.Run(ctx, src, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
