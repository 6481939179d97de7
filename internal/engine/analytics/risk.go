package analytics

import (
	"fmt"

	"github.com/argus-protocol/argus/internal/config"
)

// Status is the frame-level crowd risk level.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusWarning:
		return "WARNING"
	case StatusCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a status from its string form.
func (s *Status) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"NORMAL"`:
		*s = StatusNormal
	case `"WARNING"`:
		*s = StatusWarning
	case `"CRITICAL"`:
		*s = StatusCritical
	default:
		return fmt.Errorf("analytics: unknown status %s", data)
	}
	return nil
}

// thresholds is a (warning, critical) pair for one metric.
type thresholds struct {
	warning  float64
	critical float64
}

func (t thresholds) severity(v float64) Status {
	switch {
	case v >= t.critical:
		return StatusCritical
	case v >= t.warning:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// Classifier maps the three crowd metrics to an overall status: the worst
// severity across metrics wins. The KE spike flag is reported alongside the
// snapshot but is deliberately not a classifier input.
//
// With status_hold_frames > 0 the classifier dampens flapping: upgrades take
// effect immediately, a downgrade only after that many consecutive frames at
// the lower severity. Zero keeps classification memoryless.
type Classifier struct {
	density    thresholds
	coherence  thresholds
	ke         thresholds
	holdFrames int

	current   Status
	pendingTo Status
	pending   int
}

// NewClassifier builds a classifier from tuning thresholds.
func NewClassifier(cfg *config.TuningConfig) *Classifier {
	return &Classifier{
		density:    thresholds{cfg.GetDensityWarning(), cfg.GetDensityCritical()},
		coherence:  thresholds{cfg.GetCoherenceWarning(), cfg.GetCoherenceCritical()},
		ke:         thresholds{cfg.GetKEWarning(), cfg.GetKECritical()},
		holdFrames: cfg.GetStatusHoldFrames(),
	}
}

// Classify evaluates one frame. A nil coherence (too few moving tracks)
// contributes NORMAL.
func (c *Classifier) Classify(maxDensity int, coherence *float64, ke float64) Status {
	raw := c.density.severity(float64(maxDensity))
	if coherence != nil {
		if s := c.coherence.severity(*coherence); s > raw {
			raw = s
		}
	}
	if s := c.ke.severity(ke); s > raw {
		raw = s
	}

	if c.holdFrames == 0 {
		c.current = raw
		return raw
	}

	if raw >= c.current {
		c.current = raw
		c.pending = 0
		return c.current
	}

	// Downgrade: hold the old status until raw has been stable below it
	// for holdFrames consecutive frames.
	if raw != c.pendingTo {
		c.pendingTo = raw
		c.pending = 0
	}
	c.pending++
	if c.pending >= c.holdFrames {
		c.current = raw
		c.pending = 0
	}
	return c.current
}
