package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/argus-protocol/argus/internal/engine/analytics"
)

// SnapshotRow is a persisted analytics snapshot as read back from the
// database. The density grid is stored as a JSON array; per-track geometry
// lives in argus_tracks.
type SnapshotRow struct {
	ID            int64     `json:"id"`
	Frame         int64     `json:"frame"`
	Timestamp     time.Time `json:"ts"`
	PersonCount   int       `json:"person_count"`
	MaxDensity    int       `json:"max_density"`
	Coherence     *float64  `json:"coherence"`
	KineticEnergy float64   `json:"kinetic_energy"`
	KEAvg         float64   `json:"ke_avg"`
	KESpike       bool      `json:"ke_spike"`
	Status        string    `json:"status"`
	Stale         bool      `json:"stale"`
	Density       []int     `json:"density"`
}

// InsertSnapshot persists one analytics snapshot.
func (db *DB) InsertSnapshot(s *analytics.Snapshot) error {
	density, err := json.Marshal(s.Density)
	if err != nil {
		return fmt.Errorf("failed to encode density grid: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO argus_snapshots (
			frame, ts, person_count, max_density, coherence,
			kinetic_energy, ke_avg, ke_spike, status, stale, density
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Frame, s.Timestamp.UTC(), s.PersonCount, s.MaxDensity, s.Coherence,
		s.KineticEnergy, s.KEAvg, boolToInt(s.KESpike), s.Status.String(),
		boolToInt(s.Stale), string(density),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for frame %d: %w", s.Frame, err)
	}
	return nil
}

// RecentSnapshots returns the most recent limit snapshots, newest first.
func (db *DB) RecentSnapshots(limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, frame, ts, person_count, max_density, coherence,
			kinetic_energy, ke_avg, ke_spike, status, stale, density
		FROM argus_snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var (
			r       SnapshotRow
			spike   int
			stale   int
			density string
		)
		if err := rows.Scan(
			&r.ID, &r.Frame, &r.Timestamp, &r.PersonCount, &r.MaxDensity,
			&r.Coherence, &r.KineticEnergy, &r.KEAvg, &spike, &r.Status,
			&stale, &density,
		); err != nil {
			return nil, err
		}
		r.KESpike = spike != 0
		r.Stale = stale != 0
		if err := json.Unmarshal([]byte(density), &r.Density); err != nil {
			return nil, fmt.Errorf("failed to decode density grid for snapshot %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// SnapshotCount returns the total number of persisted snapshots.
func (db *DB) SnapshotCount() (int64, error) {
	var n int64
	err := db.QueryRow("SELECT COUNT(*) FROM argus_snapshots").Scan(&n)
	return n, err
}

// PruneSnapshotsBefore deletes snapshots older than the cutoff and returns
// the number removed. Long-running deployments call this periodically to
// bound database growth.
func (db *DB) PruneSnapshotsBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM argus_snapshots WHERE ts < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
