package track

import "math"

// State is a track's lifecycle stage.
type State int

const (
	// Tentative tracks have matched fewer than min_hits detections and are
	// excluded from analytics.
	Tentative State = iota
	// Confirmed tracks have proven themselves over min_hits matches.
	Confirmed
	// Deleted tracks have gone unmatched past max_age (or their filter
	// diverged) and are removed at end of frame.
	Deleted
)

func (s State) String() string {
	switch s {
	case Tentative:
		return "tentative"
	case Confirmed:
		return "confirmed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Track is one tracked person. Lifecycle counters follow the usual
// tracking-by-detection scheme: Hits counts matched updates over the track's
// lifetime, Streak counts consecutive matches and resets to zero on any
// missed frame, Age counts frames since creation, TimeSinceUpdate counts
// frames since the last match. Confirmation requires a Streak of min_hits,
// so a flickering detection cannot promote on scattered matches.
type Track struct {
	ID              int64
	State           State
	Hits            int
	Streak          int
	Age             int
	TimeSinceUpdate int

	kf *kalmanFilter
}

// Box returns the track's current estimated bounding box.
func (t *Track) Box() Box { return t.kf.stateBox() }

// Velocity returns the estimated velocity in pixels per frame.
func (t *Track) Velocity() (vx, vy float64) { return t.kf.velocity() }

// Speed returns the estimated speed magnitude in pixels per frame.
func (t *Track) Speed() float64 {
	vx, vy := t.kf.velocity()
	return math.Hypot(vx, vy)
}

// View is an immutable copy of a track's externally relevant state.
// Analytics and the API consume views, never live tracks.
type View struct {
	ID              int64   `json:"id"`
	Box             Box     `json:"box"`
	VX              float64 `json:"vx"`
	VY              float64 `json:"vy"`
	State           State   `json:"-"`
	Hits            int     `json:"-"`
	Age             int     `json:"-"`
	TimeSinceUpdate int     `json:"-"`
}

// Speed returns the view's speed magnitude in pixels per frame.
func (v View) Speed() float64 { return math.Hypot(v.VX, v.VY) }

func (t *Track) view() View {
	vx, vy := t.kf.velocity()
	return View{
		ID:              t.ID,
		Box:             t.kf.stateBox(),
		VX:              vx,
		VY:              vy,
		State:           t.State,
		Hits:            t.Hits,
		Age:             t.Age,
		TimeSinceUpdate: t.TimeSinceUpdate,
	}
}
