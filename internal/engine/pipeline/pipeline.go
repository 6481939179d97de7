package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/analytics"
	"github.com/argus-protocol/argus/internal/engine/detect"
	"github.com/argus-protocol/argus/internal/engine/track"
)

// Sink receives every snapshot the pipeline produces. Implementations must
// not block: the pipeline publishes synchronously at frame rate.
type Sink interface {
	PublishSnapshot(*analytics.Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(*analytics.Snapshot)

// PublishSnapshot implements Sink.
func (f SinkFunc) PublishSnapshot(s *analytics.Snapshot) { f(s) }

// Stats aggregates counters across the pipeline stages.
type Stats struct {
	FramesProcessed int64             `json:"frames_processed"`
	StaleFrames     int64             `json:"stale_frames"`
	DetectionsSeen  int64             `json:"detections_seen"`
	DetectionsKept  int64             `json:"detections_kept"`
	Drops           detect.DropCounts `json:"drops"`
	Tracker         track.Stats       `json:"tracker"`
	LastStatus      analytics.Status  `json:"last_status"`
}

// Pipeline chains the per-frame stages: validate detections, update tracks,
// run crowd analytics, publish the snapshot. Frames must arrive in order;
// ProcessFrame serializes internally so concurrent HTTP ingestion is safe.
type Pipeline struct {
	mu sync.Mutex

	validator *detect.Validator
	tracker   *track.Tracker
	engine    *analytics.Engine
	sinks     []Sink

	latest *analytics.Snapshot
	stats  Stats
}

// New builds a pipeline from tuning.
func New(cfg *config.TuningConfig) *Pipeline {
	return &Pipeline{
		validator: detect.NewValidator(cfg.GetFrameWidth(), cfg.GetFrameHeight(), cfg.GetMinConfidence()),
		tracker:   track.NewTracker(cfg),
		engine:    analytics.NewEngine(cfg),
	}
}

// AddSink registers a snapshot consumer. Not safe to call concurrently with
// ProcessFrame; wire sinks before starting ingestion.
func (p *Pipeline) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// ProcessFrame runs one frame through the full chain and returns the
// resulting snapshot.
//
// A nil frame means the source produced no usable input for this tick. The
// previous snapshot is republished marked stale rather than fabricating an
// empty frame, so downstream consumers can tell "no people" from "no data".
// Before any real frame has been processed a nil frame yields nil.
func (p *Pipeline) ProcessFrame(frame *detect.Frame) *analytics.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frame == nil {
		if p.latest == nil {
			return nil
		}
		p.stats.StaleFrames++
		stale := *p.latest
		stale.Stale = true
		p.latest = &stale
		opsf("no frame input, holding snapshot for frame %d (stale streak at %d)",
			stale.Frame, p.stats.StaleFrames)
		p.publish(&stale)
		return &stale
	}

	kept, drops := p.validator.Filter(frame.Detections)
	if drops.Total() > 0 {
		diagf("frame %d: dropped %d/%d detections (non-finite=%d empty=%d out-of-frame=%d low-conf=%d)",
			frame.Seq, drops.Total(), len(frame.Detections),
			drops.NonFinite, drops.EmptyBox, drops.OutOfFrame, drops.LowConfidence)
	}

	p.tracker.Update(kept)
	confirmed := p.tracker.ConfirmedViews()
	snap := p.engine.Analyze(frame.Seq, frame.Timestamp, confirmed)

	p.stats.FramesProcessed++
	p.stats.DetectionsSeen += int64(len(frame.Detections))
	p.stats.DetectionsKept += int64(len(kept))
	p.stats.Drops.Add(drops)
	p.stats.Tracker = p.tracker.Stats()
	if snap.Status != p.stats.LastStatus {
		opsf("frame %d: status %s -> %s (max_density=%d ke=%.2f spike=%v)",
			frame.Seq, p.stats.LastStatus, snap.Status, snap.MaxDensity, snap.KineticEnergy, snap.KESpike)
	}
	p.stats.LastStatus = snap.Status

	tracef("frame %d: %d detections -> %d confirmed tracks, status=%s",
		frame.Seq, len(kept), len(confirmed), snap.Status)

	p.latest = snap
	p.publish(snap)
	return snap
}

func (p *Pipeline) publish(s *analytics.Snapshot) {
	for _, sink := range p.sinks {
		sink.PublishSnapshot(s)
	}
}

// LatestSnapshot returns the most recent snapshot, or nil before the first
// frame. Snapshots are immutable once published.
func (p *Pipeline) LatestSnapshot() *analytics.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Stats returns a copy of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run drains frames from src at the given interval until the source is
// exhausted or the context is cancelled. An interval of zero processes
// frames back to back, which is what replay and tests want.
func (p *Pipeline) Run(ctx context.Context, src detect.Source, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		frame, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				diagf("source exhausted after %d frames", p.Stats().FramesProcessed)
				return nil
			}
			opsf("source error: %v", err)
			return err
		}
		p.ProcessFrame(frame)

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}
