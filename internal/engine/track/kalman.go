package track

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// kalmanFilter is a constant-velocity estimator over bounding-box geometry.
// State vector: [cx, cy, w, h, vx, vy] with dt fixed at one frame. Position
// and size are observed directly; velocity is inferred.
type kalmanFilter struct {
	x *mat.VecDense // State estimate, 6x1
	p *mat.Dense    // State covariance, 6x6

	f *mat.Dense // Transition, 6x6
	h *mat.Dense // Observation, 4x6
	q *mat.Dense // Process noise, 6x6
	r *mat.Dense // Measurement noise, 4x4
}

const (
	stateDim = 6
	measDim  = 4

	// Diagonal added to a singular innovation covariance before retrying
	// the inverse. Large enough to break exact singularity, small enough
	// to leave the gain essentially unchanged for healthy matrices.
	regularizeEps = 1e-6
)

var errFilterDiverged = errors.New("track: kalman state is not finite")

// newKalmanFilter seeds the estimator at a detection's geometry with zero
// velocity. The initial velocity variance is inflated so the first few
// updates can pull velocity away from zero quickly.
func newKalmanFilter(b Box, qPos, qVel, rNoise float64) *kalmanFilter {
	k := &kalmanFilter{
		x: mat.NewVecDense(stateDim, []float64{b.CenterX(), b.CenterY(), b.W, b.H, 0, 0}),
		p: mat.NewDense(stateDim, stateDim, nil),
		f: mat.NewDense(stateDim, stateDim, nil),
		h: mat.NewDense(measDim, stateDim, nil),
		q: mat.NewDense(stateDim, stateDim, nil),
		r: mat.NewDense(measDim, measDim, nil),
	}

	for i := 0; i < stateDim; i++ {
		k.f.Set(i, i, 1)
	}
	k.f.Set(0, 4, 1) // cx += vx
	k.f.Set(1, 5, 1) // cy += vy

	for i := 0; i < measDim; i++ {
		k.h.Set(i, i, 1)
		k.r.Set(i, i, rNoise)
	}

	for i := 0; i < measDim; i++ {
		k.q.Set(i, i, qPos)
	}
	k.q.Set(4, 4, qVel)
	k.q.Set(5, 5, qVel)

	for i := 0; i < measDim; i++ {
		k.p.Set(i, i, 1)
	}
	k.p.Set(4, 4, 100)
	k.p.Set(5, 5, 100)

	return k
}

// predict advances the state one frame: x = Fx, P = FPFᵀ + Q.
func (k *kalmanFilter) predict() {
	var x mat.VecDense
	x.MulVec(k.f, k.x)
	k.x.CopyVec(&x)

	var fp, fpft mat.Dense
	fp.Mul(k.f, k.p)
	fpft.Mul(&fp, k.f.T())
	fpft.Add(&fpft, k.q)
	k.p.Copy(&fpft)
	k.symmetrize()
}

// update folds a measured box into the state. A singular innovation
// covariance is regularized with a small diagonal before inverting; if the
// state still ends up non-finite, errFilterDiverged is returned and the
// caller must retire the track.
func (k *kalmanFilter) update(b Box) error {
	z := mat.NewVecDense(measDim, []float64{b.CenterX(), b.CenterY(), b.W, b.H})

	// Innovation y = z - Hx
	var hx, y mat.VecDense
	hx.MulVec(k.h, k.x)
	y.SubVec(z, &hx)

	// S = HPHᵀ + R
	var hp, s mat.Dense
	hp.Mul(k.h, k.p)
	s.Mul(&hp, k.h.T())
	s.Add(&s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		for i := 0; i < measDim; i++ {
			s.Set(i, i, s.At(i, i)+regularizeEps)
		}
		if err := sInv.Inverse(&s); err != nil {
			return errFilterDiverged
		}
	}

	// K = PHᵀS⁻¹
	var pht, gain mat.Dense
	pht.Mul(k.p, k.h.T())
	gain.Mul(&pht, &sInv)

	// x = x + Ky
	var ky mat.VecDense
	ky.MulVec(&gain, &y)
	k.x.AddVec(k.x, &ky)

	// P = (I - KH)P
	var kh mat.Dense
	kh.Mul(&gain, k.h)
	ikh := identity(stateDim)
	ikh.Sub(ikh, &kh)
	var newP mat.Dense
	newP.Mul(ikh, k.p)
	k.p.Copy(&newP)
	k.symmetrize()

	if !k.healthy() {
		return errFilterDiverged
	}
	return nil
}

// symmetrize forces P = (P + Pᵀ)/2 to counter drift from repeated
// multiplications.
func (k *kalmanFilter) symmetrize() {
	for i := 0; i < stateDim; i++ {
		for j := i + 1; j < stateDim; j++ {
			avg := (k.p.At(i, j) + k.p.At(j, i)) / 2
			k.p.Set(i, j, avg)
			k.p.Set(j, i, avg)
		}
	}
}

// healthy reports whether every state component is finite.
func (k *kalmanFilter) healthy() bool {
	for i := 0; i < stateDim; i++ {
		v := k.x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// stateBox returns the current estimated bounding box. Width and height are
// clamped to a small positive floor so a noisy size estimate never produces
// a degenerate box.
func (k *kalmanFilter) stateBox() Box {
	w := math.Max(k.x.AtVec(2), 1e-6)
	h := math.Max(k.x.AtVec(3), 1e-6)
	return Box{
		X: k.x.AtVec(0) - w/2,
		Y: k.x.AtVec(1) - h/2,
		W: w,
		H: h,
	}
}

// velocity returns the estimated velocity in pixels per frame.
func (k *kalmanFilter) velocity() (vx, vy float64) {
	return k.x.AtVec(4), k.x.AtVec(5)
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
