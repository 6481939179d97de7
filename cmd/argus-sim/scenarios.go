package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/argus-protocol/argus/internal/engine/detect"
)

// A scenario generates the detection stream of a synthetic crowd. Agents are
// simple kinematic walkers; the point is to exercise the engine's metrics,
// not to model pedestrians faithfully.

const (
	personW = 40
	personH = 80
)

type agent struct {
	x, y   float64
	vx, vy float64
}

type scenario struct {
	name   string
	agents []*agent
	// step mutates agent motion for the given frame index (1-based).
	step func(frameIdx int, agents []*agent, rng *rand.Rand)
}

func (s *scenario) frames(n int, frameW, frameH float64, rng *rand.Rand) [][]detect.Detection {
	out := make([][]detect.Detection, n)
	for i := 0; i < n; i++ {
		s.step(i+1, s.agents, rng)
		dets := make([]detect.Detection, 0, len(s.agents))
		for _, a := range s.agents {
			a.x += a.vx
			a.y += a.vy
			// Bounce off frame edges so agents stay observable.
			if cx := a.x + personW/2; cx < 0 || cx >= frameW {
				a.vx = -a.vx
				a.x += 2 * a.vx
			}
			if cy := a.y + personH/2; cy < 0 || cy >= frameH {
				a.vy = -a.vy
				a.y += 2 * a.vy
			}
			// Detector jitter.
			dets = append(dets, detect.Detection{
				X:          a.x + rng.NormFloat64()*0.5,
				Y:          a.y + rng.NormFloat64()*0.5,
				W:          personW,
				H:          personH,
				Confidence: 0.75 + rng.Float64()*0.2,
			})
		}
		out[i] = dets
	}
	return out
}

func spread(n int, frameW, frameH float64, rng *rand.Rand) []*agent {
	agents := make([]*agent, n)
	for i := range agents {
		agents[i] = &agent{
			x: rng.Float64() * (frameW - personW),
			y: rng.Float64() * (frameH - personH),
		}
	}
	return agents
}

// newScenario builds one of the named crowd scenarios.
//
//	normal     - sparse crowd strolling the same direction
//	congestion - crowd converging on one spot until density turns critical
//	panic      - fast chaotic motion, scattered headings
//	stampede   - calm walk that erupts into a sudden burst (KE spike)
func newScenario(name string, frameW, frameH float64, rng *rand.Rand) (*scenario, error) {
	switch name {
	case "normal":
		agents := spread(8, frameW, frameH, rng)
		for _, a := range agents {
			a.vx = 1.5 + rng.Float64()*0.5
			a.vy = rng.NormFloat64() * 0.2
		}
		return &scenario{name: name, agents: agents, step: func(int, []*agent, *rand.Rand) {}}, nil

	case "congestion":
		agents := spread(12, frameW, frameH, rng)
		cx, cy := frameW/2, frameH/2
		return &scenario{name: name, agents: agents, step: func(_ int, agents []*agent, _ *rand.Rand) {
			for _, a := range agents {
				// Steer toward the hotspot, slowing on approach.
				dx, dy := cx-(a.x+personW/2), cy-(a.y+personH/2)
				dist := math.Hypot(dx, dy)
				if dist < 10 {
					a.vx, a.vy = 0, 0
					continue
				}
				speed := math.Min(3, dist/40)
				a.vx = dx / dist * speed
				a.vy = dy / dist * speed
			}
		}}, nil

	case "panic":
		agents := spread(12, frameW, frameH, rng)
		return &scenario{name: name, agents: agents, step: func(frameIdx int, agents []*agent, rng *rand.Rand) {
			for _, a := range agents {
				// Re-pick a heading every few frames: high speed, no consensus.
				if frameIdx%10 == 1 {
					angle := rng.Float64() * 2 * math.Pi
					speed := 8 + rng.Float64()*4
					a.vx = math.Cos(angle) * speed
					a.vy = math.Sin(angle) * speed
				}
			}
		}}, nil

	case "stampede":
		agents := spread(10, frameW, frameH, rng)
		for _, a := range agents {
			a.vx = 1 + rng.Float64()*0.5
			a.vy = rng.NormFloat64() * 0.2
		}
		return &scenario{name: name, agents: agents, step: func(frameIdx int, agents []*agent, _ *rand.Rand) {
			// Calm first half, then everyone bolts the same way at once.
			if frameIdx == 90 {
				for _, a := range agents {
					a.vx *= 6
					a.vy *= 2
				}
			}
		}}, nil

	default:
		return nil, fmt.Errorf("unknown scenario %q (want normal, congestion, panic, or stampede)", name)
	}
}
