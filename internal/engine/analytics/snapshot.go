package analytics

import (
	"time"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/track"
)

// Snapshot is the complete analytics result for one frame: the confirmed
// tracks plus the three crowd metrics and the risk status. This is the unit
// persisted to the store, broadcast over websockets, and served by the API.
type Snapshot struct {
	Frame     int64     `json:"frame"`
	Timestamp time.Time `json:"ts"`

	Tracks      []track.View `json:"tracks"`
	PersonCount int          `json:"person_count"`

	// Density grid, row-major.
	Density     []int `json:"density"`
	DensityRows int   `json:"density_rows"`
	DensityCols int   `json:"density_cols"`
	MaxDensity  int   `json:"max_density"`

	// Coherence is nil when fewer than two tracks are moving.
	Coherence *float64 `json:"coherence"`

	KineticEnergy float64 `json:"kinetic_energy"`
	KEAvg         float64 `json:"ke_avg"`
	KESpike       bool    `json:"ke_spike"`

	Status Status `json:"status"`

	// Stale marks a snapshot republished unchanged because the frame
	// carried no usable input.
	Stale bool `json:"stale"`
}

// Engine evaluates all crowd metrics for a stream of frames. The energy
// monitor and classifier carry state across frames, so one Engine serves one
// stream, driven in frame order.
type Engine struct {
	cfg        *config.TuningConfig
	energy     *EnergyMonitor
	classifier *Classifier
}

// NewEngine builds an analytics engine from tuning.
func NewEngine(cfg *config.TuningConfig) *Engine {
	return &Engine{
		cfg:        cfg,
		energy:     NewEnergyMonitor(cfg.GetKEWindow(), cfg.GetKESpikeFactor()),
		classifier: NewClassifier(cfg),
	}
}

// Analyze evaluates one frame's confirmed tracks and assembles the snapshot.
func (e *Engine) Analyze(frame int64, ts time.Time, views []track.View) *Snapshot {
	grid := ComputeDensity(views,
		e.cfg.GetFrameWidth(), e.cfg.GetFrameHeight(),
		e.cfg.GetGridRows(), e.cfg.GetGridCols())
	coherence := MotionCoherence(views, e.cfg.GetMinSpeedForAngle())
	ke, avg, spike := e.energy.Observe(views)

	maxDensity := grid.Max()
	status := e.classifier.Classify(maxDensity, coherence, ke)

	if views == nil {
		views = []track.View{}
	}
	return &Snapshot{
		Frame:         frame,
		Timestamp:     ts,
		Tracks:        views,
		PersonCount:   len(views),
		Density:       grid.Counts,
		DensityRows:   grid.Rows,
		DensityCols:   grid.Cols,
		MaxDensity:    maxDensity,
		Coherence:     coherence,
		KineticEnergy: ke,
		KEAvg:         avg,
		KESpike:       spike,
		Status:        status,
	}
}

// Reset clears cross-frame state (energy history), e.g. on stream restart.
func (e *Engine) Reset() {
	e.energy.Reset()
}
