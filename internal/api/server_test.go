package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/db"
	"github.com/argus-protocol/argus/internal/engine/pipeline"
	"github.com/argus-protocol/argus/internal/hub"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.MigrateUp("../../migrations"))

	cfg := &config.TuningConfig{}
	pipe := pipeline.New(cfg)
	pipe.AddSink(db.NewRecorder(database))

	h := hub.New("test")
	go h.Run()
	pipe.AddSink(h)

	srv := NewServer(cfg, pipe, database, h)
	ts := httptest.NewServer(srv.ServeMux())
	t.Cleanup(ts.Close)

	return srv, ts
}

func framePayload(seq int64, boxes ...[2]float64) string {
	dets := make([]string, len(boxes))
	for i, b := range boxes {
		dets[i] = fmt.Sprintf(`{"x":%f,"y":%f,"w":40,"h":80,"confidence":0.9}`, b[0], b[1])
	}
	return fmt.Sprintf(`{"seq":%d,"ts":"2026-03-01T12:00:00Z","detections":[%s]}`,
		seq, strings.Join(dets, ","))
}

func postFrame(t *testing.T, ts *httptest.Server, payload string) map[string]interface{} {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/frames", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func getJSON(t *testing.T, ts *httptest.Server, path string, into interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestIngestFrame(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	body := postFrame(t, ts, framePayload(1, [2]float64{100, 100}))
	assert.Equal(t, float64(1), body["frame"])
	assert.Equal(t, "NORMAL", body["status"])
	assert.Equal(t, float64(0), body["person_count"], "single hit is still tentative")

	postFrame(t, ts, framePayload(2, [2]float64{100, 100}))
	body = postFrame(t, ts, framePayload(3, [2]float64{100, 100}))
	assert.Equal(t, float64(1), body["person_count"])
}

func TestIngestFrameRejectsBadPayload(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/frames", "application/json", strings.NewReader(`{"seq": nope`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/frames", "application/json", strings.NewReader(`{"seq":1,"bogus":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")

	resp, err = http.Get(ts.URL + "/api/frames")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSnapshotEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postFrame(t, ts, framePayload(1, [2]float64{100, 100}))

	var snap map[string]interface{}
	resp = getJSON(t, ts, "/api/snapshot", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), snap["frame"])
}

func TestParamsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var params map[string]interface{}
	resp := getJSON(t, ts, "/api/params", &params)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(640), params["frame_width"])
	assert.Equal(t, float64(3), params["min_hits"])
	assert.Equal(t, float64(30), params["max_age"])
	assert.Equal(t, 0.3, params["iou_gate"])
	assert.Equal(t, 6.0, params["density_critical"])
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	postFrame(t, ts, framePayload(1, [2]float64{100, 100}))

	var stats map[string]interface{}
	resp := getJSON(t, ts, "/api/stats", &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, stats, "pipeline")
	assert.Contains(t, stats, "ws_clients")
	assert.Contains(t, stats, "snapshots_stored")

	pipe := stats["pipeline"].(map[string]interface{})
	assert.Equal(t, float64(1), pipe["frames_processed"])
}

func TestHistoryEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var rows []map[string]interface{}
	resp := getJSON(t, ts, "/api/history", &rows)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, rows)

	for i := int64(1); i <= 3; i++ {
		postFrame(t, ts, framePayload(i, [2]float64{100, 100}))
	}

	resp = getJSON(t, ts, "/api/history?limit=2", &rows)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rows, 2)
	assert.Equal(t, float64(3), rows[0]["frame"], "newest first")
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts, "/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestWebsocketStream(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The hub registers asynchronously; wait before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var stats map[string]interface{}
		getJSON(t, ts, "/api/stats", &stats)
		if stats["ws_clients"] == float64(1) {
			break
		}
		require.True(t, time.Now().Before(deadline), "client never registered")
		time.Sleep(5 * time.Millisecond)
	}

	postFrame(t, ts, framePayload(1, [2]float64{100, 100}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, float64(1), snap["frame"])
}

func TestChartEndpoints(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/debug/charts/density")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no data yet")

	postFrame(t, ts, framePayload(1, [2]float64{100, 100}))

	for _, path := range []string{"/debug/charts", "/debug/charts/history", "/debug/charts/density"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/html", path)
	}
}

func TestQueryLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"limit=5", 5},
		{"limit=0", 100},
		{"limit=-3", 100},
		{"limit=99999", 100},
		{"limit=abc", 100},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/history?"+tc.query, nil)
		assert.Equal(t, tc.want, queryLimit(r, 100), tc.query)
	}
}
