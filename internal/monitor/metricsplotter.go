// Package monitor provides offline visualization of engine output: it
// records per-frame metric samples and renders PNG time-series plots after a
// run, used when replaying scenarios without a live dashboard.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/argus-protocol/argus/internal/engine/analytics"
)

// MetricsPlotter accumulates metric time series over a run. Wire it as a
// pipeline sink, then call GeneratePlots() after the run to produce output
// files.
type MetricsPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	samples   []metricSample
}

type metricSample struct {
	frame       int64
	personCount int
	maxDensity  int
	coherence   *float64
	ke          float64
	keAvg       float64
	keSpike     bool
	status      analytics.Status
}

// NewMetricsPlotter creates an idle plotter. Call Start to begin recording.
func NewMetricsPlotter() *MetricsPlotter {
	return &MetricsPlotter{}
}

// Start initializes the plotter for a new run, writing plots to outputDir.
func (mp *MetricsPlotter) Start(outputDir string) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	mp.outputDir = outputDir
	mp.enabled = true
	mp.samples = nil
	return nil
}

// Stop disables sampling. Call GeneratePlots() to produce output files.
func (mp *MetricsPlotter) Stop() {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (mp *MetricsPlotter) IsEnabled() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.enabled
}

// PublishSnapshot records one frame's metrics. Stale snapshots are skipped;
// they would plot as flat duplicates.
func (mp *MetricsPlotter) PublishSnapshot(s *analytics.Snapshot) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.enabled || s == nil || s.Stale {
		return
	}
	mp.samples = append(mp.samples, metricSample{
		frame:       s.Frame,
		personCount: s.PersonCount,
		maxDensity:  s.MaxDensity,
		coherence:   s.Coherence,
		ke:          s.KineticEnergy,
		keAvg:       s.KEAvg,
		keSpike:     s.KESpike,
		status:      s.Status,
	})
}

// SampleCount returns the number of recorded frames.
func (mp *MetricsPlotter) SampleCount() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.samples)
}

// GeneratePlots renders the recorded series as PNG files and returns their
// paths. Returns an error if Start was never called or nothing was recorded.
func (mp *MetricsPlotter) GeneratePlots() ([]string, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.outputDir == "" {
		return nil, fmt.Errorf("plotter not started")
	}
	if len(mp.samples) == 0 {
		return nil, fmt.Errorf("no samples recorded")
	}

	var paths []string
	for _, gen := range []struct {
		name string
		fn   func() (*plot.Plot, error)
	}{
		{"density.png", mp.densityPlot},
		{"energy.png", mp.energyPlot},
		{"coherence.png", mp.coherencePlot},
	} {
		p, err := gen.fn()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(mp.outputDir, gen.name)
		if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", gen.name, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func (mp *MetricsPlotter) densityPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Crowd Density"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Count"

	densityPts := make(plotter.XYs, 0, len(mp.samples))
	peoplePts := make(plotter.XYs, 0, len(mp.samples))
	for _, s := range mp.samples {
		densityPts = append(densityPts, plotter.XY{X: float64(s.frame), Y: float64(s.maxDensity)})
		peoplePts = append(peoplePts, plotter.XY{X: float64(s.frame), Y: float64(s.personCount)})
	}

	densityLine, err := plotter.NewLine(densityPts)
	if err != nil {
		return nil, err
	}
	densityLine.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	densityLine.Width = vg.Points(1)
	p.Add(densityLine)
	p.Legend.Add("max cell density", densityLine)

	peopleLine, err := plotter.NewLine(peoplePts)
	if err != nil {
		return nil, err
	}
	peopleLine.Color = color.RGBA{R: 60, G: 120, B: 220, A: 255}
	peopleLine.Width = vg.Points(1)
	p.Add(peopleLine)
	p.Legend.Add("person count", peopleLine)

	p.Legend.Top = true
	return p, nil
}

func (mp *MetricsPlotter) energyPlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Kinetic Energy"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Mean speed (px/frame)"

	kePts := make(plotter.XYs, 0, len(mp.samples))
	avgPts := make(plotter.XYs, 0, len(mp.samples))
	spikePts := make(plotter.XYs, 0, 8)
	for _, s := range mp.samples {
		kePts = append(kePts, plotter.XY{X: float64(s.frame), Y: s.ke})
		avgPts = append(avgPts, plotter.XY{X: float64(s.frame), Y: s.keAvg})
		if s.keSpike {
			spikePts = append(spikePts, plotter.XY{X: float64(s.frame), Y: s.ke})
		}
	}

	keLine, err := plotter.NewLine(kePts)
	if err != nil {
		return nil, err
	}
	keLine.Color = color.RGBA{R: 60, G: 180, B: 90, A: 255}
	keLine.Width = vg.Points(1)
	p.Add(keLine)
	p.Legend.Add("kinetic energy", keLine)

	avgLine, err := plotter.NewLine(avgPts)
	if err != nil {
		return nil, err
	}
	avgLine.Color = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	avgLine.Width = vg.Points(1)
	p.Add(avgLine)
	p.Legend.Add("window average", avgLine)

	if len(spikePts) > 0 {
		spikes, err := plotter.NewScatter(spikePts)
		if err != nil {
			return nil, err
		}
		spikes.GlyphStyle.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
		spikes.GlyphStyle.Radius = vg.Points(3)
		p.Add(spikes)
		p.Legend.Add("spike", spikes)
	}

	p.Legend.Top = true
	return p, nil
}

func (mp *MetricsPlotter) coherencePlot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Motion Coherence"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angular dispersion (deg)"

	// Frames where coherence is undefined leave gaps rather than zeros.
	pts := make(plotter.XYs, 0, len(mp.samples))
	for _, s := range mp.samples {
		if s.coherence == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(s.frame), Y: *s.coherence})
	}

	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = color.RGBA{R: 180, G: 100, B: 220, A: 255}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("dispersion", line)
	}

	p.Legend.Top = true
	return p, nil
}
