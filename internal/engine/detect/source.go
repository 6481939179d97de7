package detect

import (
	"io"
	"time"
)

// Source produces detection frames for the pipeline. Implementations wrap a
// detector backend (an object-detection model, a replay file, a synthetic
// generator); the pipeline depends only on this capability.
type Source interface {
	// Next returns the next frame, or io.EOF when the source is exhausted.
	Next() (*Frame, error)
}

// ScriptedSource replays a fixed sequence of per-frame detection lists.
// Used by the scenario simulator and tests.
type ScriptedSource struct {
	frames []*Frame
	pos    int
}

// NewScriptedSource builds a ScriptedSource from per-frame detection lists.
// Frame sequence numbers are assigned from 1 and timestamps are spaced by
// interval starting at start.
func NewScriptedSource(start time.Time, interval time.Duration, detections [][]Detection) *ScriptedSource {
	frames := make([]*Frame, len(detections))
	for i, dets := range detections {
		frames[i] = &Frame{
			Seq:        int64(i + 1),
			Timestamp:  start.Add(time.Duration(i) * interval),
			Detections: dets,
		}
	}
	return &ScriptedSource{frames: frames}
}

// Next implements Source.
func (s *ScriptedSource) Next() (*Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Len returns the total number of scripted frames.
func (s *ScriptedSource) Len() int { return len(s.frames) }
