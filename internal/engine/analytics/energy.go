package analytics

import (
	"github.com/argus-protocol/argus/internal/engine/track"
)

// EnergyMonitor tracks the crowd's kinetic energy over a moving window and
// flags sudden spikes. Kinetic energy here is the mean speed of confirmed
// tracks in pixels per frame, zero when no one is tracked.
//
// A spike fires when the current value is at least factor times the average
// of the previous window, the current sample excluded. An empty history or
// an all-zero average never produces a spike: a crowd starting to move is
// not the same thing as a calm crowd erupting.
type EnergyMonitor struct {
	window  int
	factor  float64
	history []float64
}

// NewEnergyMonitor builds a monitor with the given window length (frames)
// and spike factor.
func NewEnergyMonitor(window int, factor float64) *EnergyMonitor {
	return &EnergyMonitor{window: window, factor: factor}
}

// Observe folds one frame's tracks into the monitor and returns the current
// kinetic energy, the prior-window average it was compared against, and
// whether that comparison flags a spike.
func (m *EnergyMonitor) Observe(views []track.View) (ke, avg float64, spike bool) {
	ke = kineticEnergy(views)

	if len(m.history) > 0 {
		var sum float64
		for _, v := range m.history {
			sum += v
		}
		avg = sum / float64(len(m.history))
		spike = avg > 0 && ke >= m.factor*avg
	}

	m.history = append(m.history, ke)
	if len(m.history) > m.window {
		m.history = m.history[len(m.history)-m.window:]
	}
	return ke, avg, spike
}

// Reset clears the history, e.g. after a stream restart.
func (m *EnergyMonitor) Reset() {
	m.history = m.history[:0]
}

func kineticEnergy(views []track.View) float64 {
	if len(views) == 0 {
		return 0
	}
	var sum float64
	for _, v := range views {
		sum += v.Speed()
	}
	return sum / float64(len(views))
}
