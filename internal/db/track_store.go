package db

import (
	"fmt"
	"time"

	"github.com/argus-protocol/argus/internal/engine/track"
)

// TrackRow is a persisted track summary: where the identity was last seen
// and for how long it has been observed.
type TrackRow struct {
	TrackID    int64     `json:"track_id"`
	FirstFrame int64     `json:"first_frame"`
	LastFrame  int64     `json:"last_frame"`
	FramesSeen int       `json:"frames_seen"`
	LastX      float64   `json:"last_x"`
	LastY      float64   `json:"last_y"`
	LastW      float64   `json:"last_w"`
	LastH      float64   `json:"last_h"`
	LastVX     float64   `json:"last_vx"`
	LastVY     float64   `json:"last_vy"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordTracks upserts one frame's confirmed tracks. A track already known
// keeps its first_frame and accumulates frames_seen; its geometry is
// replaced with the latest observation. All rows go in one transaction so a
// frame is persisted atomically.
func (db *DB) RecordTracks(frame int64, views []track.View) error {
	if len(views) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin track transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO argus_tracks (
			track_id, first_frame, last_frame, frames_seen,
			last_x, last_y, last_w, last_h, last_vx, last_vy, updated_at
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(track_id) DO UPDATE SET
			last_frame = excluded.last_frame,
			frames_seen = frames_seen + 1,
			last_x = excluded.last_x,
			last_y = excluded.last_y,
			last_w = excluded.last_w,
			last_h = excluded.last_h,
			last_vx = excluded.last_vx,
			last_vy = excluded.last_vy,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare track upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range views {
		if _, err := stmt.Exec(
			v.ID, frame, frame,
			v.Box.X, v.Box.Y, v.Box.W, v.Box.H, v.VX, v.VY,
		); err != nil {
			return fmt.Errorf("failed to upsert track %d: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// RecentTracks returns the limit most recently updated tracks.
func (db *DB) RecentTracks(limit int) ([]TrackRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT track_id, first_frame, last_frame, frames_seen,
			last_x, last_y, last_w, last_h, last_vx, last_vy, updated_at
		FROM argus_tracks ORDER BY last_frame DESC, track_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackRow
	for rows.Next() {
		var r TrackRow
		if err := rows.Scan(
			&r.TrackID, &r.FirstFrame, &r.LastFrame, &r.FramesSeen,
			&r.LastX, &r.LastY, &r.LastW, &r.LastH, &r.LastVX, &r.LastVY,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// TrackCount returns the number of distinct identities ever persisted.
func (db *DB) TrackCount() (int64, error) {
	var n int64
	err := db.QueryRow("SELECT COUNT(*) FROM argus_tracks").Scan(&n)
	return n, err
}
