package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be used
// for both startup configuration and inspection at runtime.
type TuningConfig struct {
	// Frame geometry
	FrameWidth  *int `json:"frame_width,omitempty"`
	FrameHeight *int `json:"frame_height,omitempty"`

	// Detection ingestion
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Tracker params
	IoUGate          *float64 `json:"iou_gate,omitempty"`
	MinHits          *int     `json:"min_hits,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
	ProcessNoisePos  *float64 `json:"process_noise_pos,omitempty"`
	ProcessNoiseVel  *float64 `json:"process_noise_vel,omitempty"`
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`

	// Analytics params
	GridRows         *int     `json:"grid_rows,omitempty"`
	GridCols         *int     `json:"grid_cols,omitempty"`
	MinSpeedForAngle *float64 `json:"min_speed_for_angle,omitempty"`
	KESpikeFactor    *float64 `json:"ke_spike_factor,omitempty"`
	KEWindow         *int     `json:"ke_window,omitempty"`

	// Risk thresholds (warning, critical) per metric
	DensityWarning    *float64 `json:"density_warning,omitempty"`
	DensityCritical   *float64 `json:"density_critical,omitempty"`
	CoherenceWarning  *float64 `json:"coherence_warning,omitempty"`
	CoherenceCritical *float64 `json:"coherence_critical,omitempty"`
	KEWarning         *float64 `json:"ke_warning,omitempty"`
	KECritical        *float64 `json:"ke_critical,omitempty"`

	// Status dampening: a downgrade (e.g. CRITICAL -> WARNING) only takes
	// effect after this many consecutive frames at the lower severity.
	// Zero disables dampening (memoryless per-frame classification).
	StatusHoldFrames *int `json:"status_hold_frames,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/engine/*
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FrameWidth != nil && *c.FrameWidth <= 0 {
		return fmt.Errorf("frame_width must be positive, got %d", *c.FrameWidth)
	}
	if c.FrameHeight != nil && *c.FrameHeight <= 0 {
		return fmt.Errorf("frame_height must be positive, got %d", *c.FrameHeight)
	}
	if c.MinConfidence != nil {
		if *c.MinConfidence < 0 || *c.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *c.MinConfidence)
		}
	}
	if c.IoUGate != nil {
		if *c.IoUGate < 0 || *c.IoUGate > 1 {
			return fmt.Errorf("iou_gate must be between 0 and 1, got %f", *c.IoUGate)
		}
	}
	if c.MinHits != nil && *c.MinHits < 1 {
		return fmt.Errorf("min_hits must be at least 1, got %d", *c.MinHits)
	}
	if c.MaxAge != nil && *c.MaxAge < 0 {
		return fmt.Errorf("max_age must be non-negative, got %d", *c.MaxAge)
	}
	if c.GridRows != nil && *c.GridRows < 1 {
		return fmt.Errorf("grid_rows must be at least 1, got %d", *c.GridRows)
	}
	if c.GridCols != nil && *c.GridCols < 1 {
		return fmt.Errorf("grid_cols must be at least 1, got %d", *c.GridCols)
	}
	if c.KEWindow != nil && *c.KEWindow < 1 {
		return fmt.Errorf("ke_window must be at least 1, got %d", *c.KEWindow)
	}
	if c.KESpikeFactor != nil && *c.KESpikeFactor <= 0 {
		return fmt.Errorf("ke_spike_factor must be positive, got %f", *c.KESpikeFactor)
	}
	if c.StatusHoldFrames != nil && *c.StatusHoldFrames < 0 {
		return fmt.Errorf("status_hold_frames must be non-negative, got %d", *c.StatusHoldFrames)
	}

	// Each metric's warning threshold must not exceed its critical threshold.
	pairs := []struct {
		name     string
		warning  *float64
		critical *float64
	}{
		{"density", c.DensityWarning, c.DensityCritical},
		{"coherence", c.CoherenceWarning, c.CoherenceCritical},
		{"ke", c.KEWarning, c.KECritical},
	}
	for _, p := range pairs {
		if p.warning != nil && p.critical != nil && *p.warning > *p.critical {
			return fmt.Errorf("%s_warning (%f) must not exceed %s_critical (%f)",
				p.name, *p.warning, p.name, *p.critical)
		}
	}

	return nil
}

// GetFrameWidth returns the frame_width value or the default.
func (c *TuningConfig) GetFrameWidth() int {
	if c.FrameWidth == nil {
		return 640
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the frame_height value or the default.
func (c *TuningConfig) GetFrameHeight() int {
	if c.FrameHeight == nil {
		return 480
	}
	return *c.FrameHeight
}

// GetMinConfidence returns the min_confidence value or the default.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return 0.5
	}
	return *c.MinConfidence
}

// GetIoUGate returns the iou_gate value or the default.
func (c *TuningConfig) GetIoUGate() float64 {
	if c.IoUGate == nil {
		return 0.3
	}
	return *c.IoUGate
}

// GetMinHits returns the min_hits value or the default.
func (c *TuningConfig) GetMinHits() int {
	if c.MinHits == nil {
		return 3
	}
	return *c.MinHits
}

// GetMaxAge returns the max_age value or the default.
func (c *TuningConfig) GetMaxAge() int {
	if c.MaxAge == nil {
		return 30
	}
	return *c.MaxAge
}

// GetProcessNoisePos returns the process_noise_pos value or the default.
func (c *TuningConfig) GetProcessNoisePos() float64 {
	if c.ProcessNoisePos == nil {
		return 0.01
	}
	return *c.ProcessNoisePos
}

// GetProcessNoiseVel returns the process_noise_vel value or the default.
func (c *TuningConfig) GetProcessNoiseVel() float64 {
	if c.ProcessNoiseVel == nil {
		return 0.01
	}
	return *c.ProcessNoiseVel
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 0.1
	}
	return *c.MeasurementNoise
}

// GetGridRows returns the grid_rows value or the default.
func (c *TuningConfig) GetGridRows() int {
	if c.GridRows == nil {
		return 10
	}
	return *c.GridRows
}

// GetGridCols returns the grid_cols value or the default.
func (c *TuningConfig) GetGridCols() int {
	if c.GridCols == nil {
		return 10
	}
	return *c.GridCols
}

// GetMinSpeedForAngle returns the min_speed_for_angle value or the default.
func (c *TuningConfig) GetMinSpeedForAngle() float64 {
	if c.MinSpeedForAngle == nil {
		return 0.1
	}
	return *c.MinSpeedForAngle
}

// GetKESpikeFactor returns the ke_spike_factor value or the default.
func (c *TuningConfig) GetKESpikeFactor() float64 {
	if c.KESpikeFactor == nil {
		return 2.0
	}
	return *c.KESpikeFactor
}

// GetKEWindow returns the ke_window value or the default.
func (c *TuningConfig) GetKEWindow() int {
	if c.KEWindow == nil {
		return 45
	}
	return *c.KEWindow
}

// GetDensityWarning returns the density_warning value or the default.
func (c *TuningConfig) GetDensityWarning() float64 {
	if c.DensityWarning == nil {
		return 4.0
	}
	return *c.DensityWarning
}

// GetDensityCritical returns the density_critical value or the default.
func (c *TuningConfig) GetDensityCritical() float64 {
	if c.DensityCritical == nil {
		return 6.0
	}
	return *c.DensityCritical
}

// GetCoherenceWarning returns the coherence_warning value or the default.
func (c *TuningConfig) GetCoherenceWarning() float64 {
	if c.CoherenceWarning == nil {
		return 40.0
	}
	return *c.CoherenceWarning
}

// GetCoherenceCritical returns the coherence_critical value or the default.
func (c *TuningConfig) GetCoherenceCritical() float64 {
	if c.CoherenceCritical == nil {
		return 65.0
	}
	return *c.CoherenceCritical
}

// GetKEWarning returns the ke_warning value or the default.
func (c *TuningConfig) GetKEWarning() float64 {
	if c.KEWarning == nil {
		return 8.0
	}
	return *c.KEWarning
}

// GetKECritical returns the ke_critical value or the default.
func (c *TuningConfig) GetKECritical() float64 {
	if c.KECritical == nil {
		return 15.0
	}
	return *c.KECritical
}

// GetStatusHoldFrames returns the status_hold_frames value or the default.
func (c *TuningConfig) GetStatusHoldFrames() int {
	if c.StatusHoldFrames == nil {
		return 0
	}
	return *c.StatusHoldFrames
}
