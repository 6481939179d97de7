package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/track"
)

func TestEngineAnalyze(t *testing.T) {
	t.Parallel()

	e := NewEngine(&config.TuningConfig{})
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	views := []track.View{
		{ID: 1, VX: 2, Box: track.Box{X: 80, Y: 60, W: 40, H: 80}},
		{ID: 2, VX: 2, Box: track.Box{X: 90, Y: 60, W: 40, H: 80}},
		{ID: 3, VX: 2, Box: track.Box{X: 500, Y: 300, W: 40, H: 80}},
	}
	snap := e.Analyze(7, ts, views)

	assert.Equal(t, int64(7), snap.Frame)
	assert.Equal(t, ts, snap.Timestamp)
	assert.Equal(t, 3, snap.PersonCount)
	assert.Len(t, snap.Tracks, 3)
	assert.Equal(t, 10, snap.DensityRows)
	assert.Equal(t, 10, snap.DensityCols)
	assert.Len(t, snap.Density, 100)
	assert.Equal(t, 2, snap.MaxDensity, "two of the three centroids share a cell")
	require.NotNil(t, snap.Coherence)
	assert.InDelta(t, 0, *snap.Coherence, 1e-9)
	assert.InDelta(t, 2, snap.KineticEnergy, 1e-9)
	assert.False(t, snap.KESpike, "first frame has no baseline")
	assert.Equal(t, StatusNormal, snap.Status)
	assert.False(t, snap.Stale)
}

func TestEngineAnalyzeEmptyFrame(t *testing.T) {
	t.Parallel()

	e := NewEngine(&config.TuningConfig{})
	snap := e.Analyze(1, time.Now(), nil)

	assert.Equal(t, 0, snap.PersonCount)
	assert.NotNil(t, snap.Tracks, "tracks must encode as [] not null")
	assert.Nil(t, snap.Coherence)
	assert.Zero(t, snap.KineticEnergy)
	assert.Equal(t, StatusNormal, snap.Status)
}

func TestSnapshotJSONShape(t *testing.T) {
	t.Parallel()

	e := NewEngine(&config.TuningConfig{})
	snap := e.Analyze(1, time.Now().UTC(), nil)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Contains(t, m, "frame")
	assert.Contains(t, m, "tracks")
	assert.Contains(t, m, "density")
	assert.Contains(t, m, "max_density")
	assert.Contains(t, m, "coherence")
	assert.Contains(t, m, "kinetic_energy")
	assert.Contains(t, m, "ke_spike")
	assert.Equal(t, "NORMAL", m["status"])
	assert.Nil(t, m["coherence"])
	assert.IsType(t, []interface{}{}, m["tracks"])
}
