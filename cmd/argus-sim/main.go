// argus-sim replays synthetic crowd scenarios through the analytics engine.
// It runs the pipeline in-process by default, printing a per-run summary and
// optionally rendering metric plots; with -server it posts frames to a
// running instance instead, exercising the full ingestion path.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/argus-protocol/argus/internal/config"
	"github.com/argus-protocol/argus/internal/engine/analytics"
	"github.com/argus-protocol/argus/internal/engine/detect"
	"github.com/argus-protocol/argus/internal/engine/pipeline"
	"github.com/argus-protocol/argus/internal/monitor"
)

var (
	scenarioName = flag.String("scenario", "normal", "Scenario to run: normal, congestion, panic, or stampede")
	frames       = flag.Int("frames", 180, "Number of frames to generate")
	fps          = flag.Int("fps", 10, "Frame timestamps per second (0 processes as fast as possible)")
	seed         = flag.Int64("seed", 1, "Random seed for agent placement and jitter")
	serverURL    = flag.String("server", "", "Post frames to a running server at this base URL instead of running in-process")
	plotsDir     = flag.String("plots", "", "Write PNG metric plots to this directory (in-process mode only)")
	configPath   = flag.String("config", "", "Path to a tuning config JSON file")
)

func main() {
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	rng := rand.New(rand.NewSource(*seed))
	sc, err := newScenario(*scenarioName, float64(cfg.GetFrameWidth()), float64(cfg.GetFrameHeight()), rng)
	if err != nil {
		log.Fatal(err)
	}

	interval := time.Duration(0)
	if *fps > 0 {
		interval = time.Second / time.Duration(*fps)
	}
	detections := sc.frames(*frames, float64(cfg.GetFrameWidth()), float64(cfg.GetFrameHeight()), rng)
	src := detect.NewScriptedSource(time.Now().UTC(), interval, detections)

	if *serverURL != "" {
		if err := postFrames(*serverURL, src); err != nil {
			log.Fatal(err)
		}
		return
	}

	runLocal(cfg, sc.name, src)
}

// runLocal drives the pipeline in-process and prints a run summary.
func runLocal(cfg *config.TuningConfig, name string, src detect.Source) {
	pipe := pipeline.New(cfg)

	var plotter *monitor.MetricsPlotter
	if *plotsDir != "" {
		plotter = monitor.NewMetricsPlotter()
		if err := plotter.Start(*plotsDir); err != nil {
			log.Fatalf("failed to start plotter: %v", err)
		}
		pipe.AddSink(plotter)
	}

	summary := newRunSummary()
	pipe.AddSink(summary)

	if err := pipe.Run(context.Background(), src, 0); err != nil {
		log.Fatalf("pipeline run failed: %v", err)
	}

	stats := pipe.Stats()
	fmt.Printf("scenario %s: %d frames, %d tracks created, %d confirmed\n",
		name, stats.FramesProcessed, stats.Tracker.TracksCreated, stats.Tracker.ConfirmedTotal)
	summary.print()

	if plotter != nil {
		plotter.Stop()
		paths, err := plotter.GeneratePlots()
		if err != nil {
			log.Fatalf("failed to generate plots: %v", err)
		}
		for _, p := range paths {
			fmt.Printf("wrote %s\n", p)
		}
	}
}

// runSummary tallies status frames and spike events across a run.
type runSummary struct {
	statusFrames map[analytics.Status]int
	spikes       int
	peakDensity  int
	peakKE       float64
}

func newRunSummary() *runSummary {
	return &runSummary{statusFrames: make(map[analytics.Status]int)}
}

func (rs *runSummary) PublishSnapshot(s *analytics.Snapshot) {
	if s == nil || s.Stale {
		return
	}
	rs.statusFrames[s.Status]++
	if s.KESpike {
		rs.spikes++
	}
	if s.MaxDensity > rs.peakDensity {
		rs.peakDensity = s.MaxDensity
	}
	if s.KineticEnergy > rs.peakKE {
		rs.peakKE = s.KineticEnergy
	}
}

func (rs *runSummary) print() {
	for _, st := range []analytics.Status{analytics.StatusNormal, analytics.StatusWarning, analytics.StatusCritical} {
		fmt.Printf("  %s: %d frames\n", st, rs.statusFrames[st])
	}
	fmt.Printf("  ke spikes: %d, peak density: %d, peak ke: %.2f\n", rs.spikes, rs.peakDensity, rs.peakKE)
}

// postFrames streams every frame to a running server's ingestion endpoint.
func postFrames(baseURL string, src detect.Source) error {
	client := &http.Client{Timeout: 5 * time.Second}
	url := baseURL + "/api/frames"

	for {
		frame, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		body, err := json.Marshal(frame)
		if err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", frame.Seq, err)
		}
		resp, err := client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to post frame %d: %w", frame.Seq, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server rejected frame %d: %s", frame.Seq, resp.Status)
		}
	}
}
