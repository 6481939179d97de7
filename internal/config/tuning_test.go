package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	t.Parallel()

	t.Run("partial config keeps defaults for omitted fields", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"min_hits": 5, "iou_gate": 0.4}`)

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.GetMinHits())
		assert.Equal(t, 0.4, cfg.GetIoUGate())
		// Omitted fields fall back to defaults
		assert.Equal(t, 30, cfg.GetMaxAge())
		assert.Equal(t, 10, cfg.GetGridRows())
		assert.Equal(t, 45, cfg.GetKEWindow())
		assert.Equal(t, 2.0, cfg.GetKESpikeFactor())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig("tuning.yaml")
		assert.Error(t, err)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, `{"min_hits": `)
		_, err := LoadTuningConfig(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"empty config is valid", `{}`, false},
		{"full defaults are valid", `{"grid_rows": 10, "grid_cols": 10, "min_hits": 3}`, false},
		{"zero grid rows", `{"grid_rows": 0}`, true},
		{"negative max_age", `{"max_age": -1}`, true},
		{"min_hits below one", `{"min_hits": 0}`, true},
		{"iou_gate above one", `{"iou_gate": 1.5}`, true},
		{"confidence below zero", `{"min_confidence": -0.2}`, true},
		{"zero ke_window", `{"ke_window": 0}`, true},
		{"non-positive spike factor", `{"ke_spike_factor": 0}`, true},
		{"warning above critical", `{"density_warning": 7.0, "density_critical": 6.0}`, true},
		{"coherence warning above critical", `{"coherence_warning": 70.0, "coherence_critical": 65.0}`, true},
		{"negative hold frames", `{"status_hold_frames": -3}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tc.json)
			_, err := LoadTuningConfig(path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)

	// The canonical defaults file mirrors the built-in defaults.
	assert.Equal(t, 640, cfg.GetFrameWidth())
	assert.Equal(t, 480, cfg.GetFrameHeight())
	assert.Equal(t, 3, cfg.GetMinHits())
	assert.Equal(t, 30, cfg.GetMaxAge())
	assert.Equal(t, 4.0, cfg.GetDensityWarning())
	assert.Equal(t, 6.0, cfg.GetDensityCritical())
	assert.Equal(t, 40.0, cfg.GetCoherenceWarning())
	assert.Equal(t, 65.0, cfg.GetCoherenceCritical())
	assert.Equal(t, 0, cfg.GetStatusHoldFrames())
}
