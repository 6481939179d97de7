package track

import (
	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/detect"
	"github.com/argus-protocol/argus/internal/monitoring"
)

// Tracker maintains the set of live tracks across frames: predict, associate,
// update, spawn, retire. One Tracker handles one camera stream; callers
// drive it single-threaded, one Update per frame in order.
type Tracker struct {
	cfg *config.TuningConfig

	// Ordered by ascending ID so association and output are deterministic.
	tracks []*Track

	nextID     int64
	frameCount int64

	// Lifetime counters, surfaced through Stats.
	created   int64
	confirmed int64
	retired   int64
	diverged  int64
}

// Stats is a snapshot of the tracker's lifetime counters.
type Stats struct {
	FrameCount     int64 `json:"frame_count"`
	ActiveTracks   int   `json:"active_tracks"`
	TracksCreated  int64 `json:"tracks_created"`
	TracksRetired  int64 `json:"tracks_retired"`
	TracksDiverged int64 `json:"tracks_diverged"`
	ConfirmedTotal int64 `json:"confirmed_total"`
}

// NewTracker builds a tracker with the given tuning. IDs start at 1 and are
// never reused.
func NewTracker(cfg *config.TuningConfig) *Tracker {
	return &Tracker{cfg: cfg, nextID: 1}
}

// Update runs one full tracking cycle against a frame's validated
// detections and returns views of the tracks that survive the frame.
//
// The cycle: predict every live track forward one frame, associate the
// detections, fold matched detections into their tracks, spawn tentative
// tracks for leftover detections, and retire tracks that have gone
// unmatched past max_age. Retired tracks are pruned before returning, so a
// deleted ID is never visible to callers.
func (tr *Tracker) Update(dets []detect.Detection) []View {
	tr.frameCount++

	// Predict phase. A filter that diverges during predict retires its
	// track immediately; its box is meaningless for association.
	for _, t := range tr.tracks {
		t.kf.predict()
		t.Age++
		t.TimeSinceUpdate++
		if !t.kf.healthy() {
			t.State = Deleted
			tr.diverged++
			monitoring.Logf("track: filter diverged, retiring track %d", t.ID)
		}
	}

	live := make([]*Track, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.State != Deleted {
			live = append(live, t)
		}
	}

	matches, unmatchedDets, unmatchedTracks := associate(dets, live, tr.cfg.GetIoUGate())

	for _, m := range matches {
		t := live[m.track]
		if err := t.kf.update(BoxFromDetection(dets[m.det])); err != nil {
			t.State = Deleted
			tr.diverged++
			monitoring.Logf("track: filter diverged on update, retiring track %d", t.ID)
			continue
		}
		t.Hits++
		t.Streak++
		t.TimeSinceUpdate = 0
		if t.State == Tentative && t.Streak >= tr.cfg.GetMinHits() {
			t.State = Confirmed
			tr.confirmed++
		}
	}

	for _, j := range unmatchedTracks {
		t := live[j]
		t.Streak = 0
		if t.TimeSinceUpdate > tr.cfg.GetMaxAge() {
			t.State = Deleted
			tr.retired++
		}
	}

	for _, i := range unmatchedDets {
		tr.spawn(dets[i])
	}

	tr.prune()

	views := make([]View, len(tr.tracks))
	for i, t := range tr.tracks {
		views[i] = t.view()
	}
	return views
}

// spawn creates a tentative track seeded at the detection. With min_hits of
// one the track is confirmed on the spot.
func (tr *Tracker) spawn(d detect.Detection) {
	t := &Track{
		ID:     tr.nextID,
		State:  Tentative,
		Hits:   1,
		Streak: 1,
		Age:    1,
		kf: newKalmanFilter(BoxFromDetection(d),
			tr.cfg.GetProcessNoisePos(), tr.cfg.GetProcessNoiseVel(), tr.cfg.GetMeasurementNoise()),
	}
	tr.nextID++
	tr.created++
	if t.Streak >= tr.cfg.GetMinHits() {
		t.State = Confirmed
		tr.confirmed++
	}
	tr.tracks = append(tr.tracks, t)
}

// prune drops deleted tracks. Appending spawned tracks after the ordered
// survivors keeps the slice sorted by ID without an explicit sort.
func (tr *Tracker) prune() {
	kept := tr.tracks[:0]
	for _, t := range tr.tracks {
		if t.State != Deleted {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(tr.tracks); i++ {
		tr.tracks[i] = nil
	}
	tr.tracks = kept
}

// ConfirmedViews returns copies of the confirmed tracks only, ordered by ID.
// This is the population analytics runs on.
func (tr *Tracker) ConfirmedViews() []View {
	views := make([]View, 0, len(tr.tracks))
	for _, t := range tr.tracks {
		if t.State == Confirmed {
			views = append(views, t.view())
		}
	}
	return views
}

// ActiveCount returns the number of live (tentative or confirmed) tracks.
func (tr *Tracker) ActiveCount() int { return len(tr.tracks) }

// Stats returns the tracker's lifetime counters.
func (tr *Tracker) Stats() Stats {
	return Stats{
		FrameCount:     tr.frameCount,
		ActiveTracks:   len(tr.tracks),
		TracksCreated:  tr.created,
		TracksRetired:  tr.retired,
		TracksDiverged: tr.diverged,
		ConfirmedTotal: tr.confirmed,
	}
}
