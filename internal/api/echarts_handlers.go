package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Debug chart endpoints render quick go-echarts HTML views of the metric
// history and the live density grid. These are debugging-only endpoints (no
// auth) for eyeballing engine behaviour without a dashboard frontend.

// handleDebugDashboard renders a simple dashboard with iframes to the debug charts.
func (s *Server) handleDebugDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Argus Debug Charts</title></head>
<body style="background:#111;color:#eee;font-family:monospace">
<h2>Argus Debug Charts</h2>
<iframe src="/debug/charts/history" style="width:100%;height:560px;border:0"></iframe>
<iframe src="/debug/charts/density" style="width:100%;height:560px;border:0"></iframe>
</body></html>`)
}

// handleHistoryChart renders the persisted metric history as a line chart.
// Query params:
//   - limit (optional; default 300) number of most recent snapshots
func (s *Server) handleHistoryChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := 300
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 5000 {
			limit = v
		}
	}

	rows, err := s.db.RecentSnapshots(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query history: %v", err))
		return
	}
	if len(rows) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no snapshots recorded yet")
		return
	}

	// Rows come back newest first; charts read left to right.
	frames := make([]string, 0, len(rows))
	density := make([]opts.LineData, 0, len(rows))
	ke := make([]opts.LineData, 0, len(rows))
	coherence := make([]opts.LineData, 0, len(rows))
	people := make([]opts.LineData, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		frames = append(frames, strconv.FormatInt(row.Frame, 10))
		density = append(density, opts.LineData{Value: row.MaxDensity})
		ke = append(ke, opts.LineData{Value: row.KineticEnergy})
		people = append(people, opts.LineData{Value: row.PersonCount})
		if row.Coherence != nil {
			coherence = append(coherence, opts.LineData{Value: *row.Coherence})
		} else {
			// "-" renders as a gap rather than a bogus zero.
			coherence = append(coherence, opts.LineData{Value: "-"})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Argus Metric History", Theme: "dark", Width: "1400px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: "Crowd Metrics", Subtitle: fmt.Sprintf("last %d snapshots", len(rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)
	line.SetXAxis(frames).
		AddSeries("max_density", density).
		AddSeries("kinetic_energy", ke).
		AddSeries("coherence_deg", coherence).
		AddSeries("person_count", people)

	s.renderChart(w, line)
}

// handleDensityChart renders the latest snapshot's density grid as a heatmap.
func (s *Server) handleDensityChart(w http.ResponseWriter, r *http.Request) {
	snap := s.pipe.LatestSnapshot()
	if snap == nil {
		s.writeJSONError(w, http.StatusNotFound, "no frames processed yet")
		return
	}

	data := make([]opts.HeatMapData, 0, len(snap.Density))
	for row := 0; row < snap.DensityRows; row++ {
		for col := 0; col < snap.DensityCols; col++ {
			count := snap.Density[row*snap.DensityCols+col]
			// Flip rows so the chart matches image coordinates (row 0 on top).
			data = append(data, opts.HeatMapData{Value: [3]interface{}{col, snap.DensityRows - 1 - row, count}})
		}
	}

	cols := make([]string, snap.DensityCols)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	rowLabels := make([]string, snap.DensityRows)
	for i := range rowLabels {
		rowLabels[i] = strconv.Itoa(snap.DensityRows - 1 - i)
	}

	maxCount := snap.MaxDensity
	if maxCount == 0 {
		maxCount = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Argus Density Grid", Theme: "dark", Width: "900px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: "Density Grid", Subtitle: fmt.Sprintf("frame=%d status=%s", snap.Frame, snap.Status)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: cols, Name: "col"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rowLabels, Name: "row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	hm.AddSeries("density", data)

	s.renderChart(w, hm)
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func (s *Server) renderChart(w http.ResponseWriter, c chartRenderer) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
