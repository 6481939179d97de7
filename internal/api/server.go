package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/db"
	"github.com/argus-protocol/argus/internal/engine/detect"
	"github.com/argus-protocol/argus/internal/engine/pipeline"
	"github.com/argus-protocol/argus/internal/hub"
	"github.com/argus-protocol/argus/internal/monitoring"
	"github.com/argus-protocol/argus/internal/version"
)

// Server exposes the engine over HTTP: detection ingestion, snapshot and
// history queries, live websocket streaming, and debug charts.
type Server struct {
	cfg  *config.TuningConfig
	pipe *pipeline.Pipeline
	db   *db.DB
	hub  *hub.Hub

	upgrader websocket.Upgrader
}

// NewServer wires the API against the pipeline, store, and websocket hub.
// The db and hub may be nil (e.g. in replay tooling); the corresponding
// endpoints then report unavailable.
func NewServer(cfg *config.TuningConfig, pipe *pipeline.Pipeline, database *db.DB, h *hub.Hub) *Server {
	return &Server{
		cfg:  cfg,
		pipe: pipe,
		db:   database,
		hub:  h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards are served from arbitrary origins during development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeMux returns the route table for the server.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/frames", s.handleIngestFrame)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ws", s.handleWebsocket)
	mux.HandleFunc("/debug/charts", s.handleDebugDashboard)
	mux.HandleFunc("/debug/charts/history", s.handleHistoryChart)
	mux.HandleFunc("/debug/charts/density", s.handleDensityChart)
	return mux
}

const maxFrameBody = 1 * 1024 * 1024 // 1MB per frame payload

// handleIngestFrame accepts one frame of detections and runs it through the
// pipeline synchronously, returning the resulting snapshot.
func (s *Server) handleIngestFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var frame detect.Frame
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&frame); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid frame payload: %v", err))
		return
	}

	snap := s.pipe.ProcessFrame(&frame)
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.pipe.LatestSnapshot()
	if snap == nil {
		s.writeJSONError(w, http.StatusNotFound, "no frames processed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"version":  version.Version,
		"pipeline": s.pipe.Stats(),
	}
	if s.hub != nil {
		stats["ws_clients"] = s.hub.ClientCount()
	}
	if s.db != nil {
		if n, err := s.db.SnapshotCount(); err == nil {
			stats["snapshots_stored"] = n
		}
		if n, err := s.db.TrackCount(); err == nil {
			stats["tracks_stored"] = n
		}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	rows, err := s.db.RecentSnapshots(queryLimit(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query history: %v", err))
		return
	}
	if rows == nil {
		rows = []db.SnapshotRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	rows, err := s.db.RecentTracks(queryLimit(r, 100))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query tracks: %v", err))
		return
	}
	if rows == nil {
		rows = []db.TrackRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

// handleParams reports the resolved tuning values, defaults applied.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := map[string]interface{}{
		"frame_width":         s.cfg.GetFrameWidth(),
		"frame_height":        s.cfg.GetFrameHeight(),
		"min_confidence":      s.cfg.GetMinConfidence(),
		"iou_gate":            s.cfg.GetIoUGate(),
		"min_hits":            s.cfg.GetMinHits(),
		"max_age":             s.cfg.GetMaxAge(),
		"process_noise_pos":   s.cfg.GetProcessNoisePos(),
		"process_noise_vel":   s.cfg.GetProcessNoiseVel(),
		"measurement_noise":   s.cfg.GetMeasurementNoise(),
		"grid_rows":           s.cfg.GetGridRows(),
		"grid_cols":           s.cfg.GetGridCols(),
		"min_speed_for_angle": s.cfg.GetMinSpeedForAngle(),
		"ke_spike_factor":     s.cfg.GetKESpikeFactor(),
		"ke_window":           s.cfg.GetKEWindow(),
		"density_warning":     s.cfg.GetDensityWarning(),
		"density_critical":    s.cfg.GetDensityCritical(),
		"coherence_warning":   s.cfg.GetCoherenceWarning(),
		"coherence_critical":  s.cfg.GetCoherenceCritical(),
		"ke_warning":          s.cfg.GetKEWarning(),
		"ke_critical":         s.cfg.GetKECritical(),
		"status_hold_frames":  s.cfg.GetStatusHoldFrames(),
	}
	s.writeJSON(w, http.StatusOK, params)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no websocket hub configured")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		monitoring.Logf("api: websocket upgrade failed: %v", err)
		return
	}
	client := hub.NewClient(s.hub, conn)
	client.Run()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > 10000 {
		return fallback
	}
	return v
}
