package db

import (
	"github.com/argus-protocol/argus/internal/engine/analytics"
	"github.com/argus-protocol/argus/internal/monitoring"
)

// Recorder persists pipeline snapshots and their confirmed tracks. It is
// wired as a pipeline sink; persistence failures are logged and swallowed so
// a full disk never stalls live analytics.
type Recorder struct {
	db *DB

	// Stale snapshots repeat the previous frame's content; recording them
	// would duplicate rows without adding information.
	SkipStale bool
}

// NewRecorder builds a recorder that skips stale snapshots.
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db, SkipStale: true}
}

// PublishSnapshot persists the snapshot and upserts its tracks.
func (r *Recorder) PublishSnapshot(s *analytics.Snapshot) {
	if s == nil || (r.SkipStale && s.Stale) {
		return
	}
	if err := r.db.InsertSnapshot(s); err != nil {
		monitoring.Logf("db: failed to record snapshot for frame %d: %v", s.Frame, err)
		return
	}
	if err := r.db.RecordTracks(s.Frame, s.Tracks); err != nil {
		monitoring.Logf("db: failed to record tracks for frame %d: %v", s.Frame, err)
	}
}
