package integrators

import (
	"math"

	"github.com/san-kum/multicart/internal/dynamo"
)

// Dormand-Prince tableau.
var (
	dpNodes = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}

	dpCoeffs = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth order weights minus the embedded fourth order ones
	dpErr = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

// RK45 takes fixed Dormand-Prince steps. The environment timestep is fixed,
// so the embedded error estimate is only reported, never used to resize dt.
type RK45 struct {
	k       [7]dynamo.State
	scratch dynamo.State
	lastErr float64
}

func NewRK45() *RK45 {
	return &RK45{}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	r.k[0] = sys.Derive(x, u, t)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < s; j++ {
				sum += dpCoeffs[s][j] * r.k[j][i]
			}
			r.scratch[i] = x[i] + dt*sum
		}
		if s == 6 {
			break
		}
		r.k[s] = sys.Derive(r.scratch, u, t+dpNodes[s]*dt)
	}

	result := r.scratch.Clone()
	r.k[6] = sys.Derive(result, u, t+dt)

	r.lastErr = 0
	for i := 0; i < n; i++ {
		est := 0.0
		for j := 0; j < 7; j++ {
			est += dpErr[j] * r.k[j][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*r.k[0][i]) + 1e-10
		r.lastErr = math.Max(r.lastErr, math.Abs(dt*est)/scale)
	}

	return result
}

// LastError is the relative local error estimate of the previous step.
func (r *RK45) LastError() float64 { return r.lastErr }

// MaxStepError integrates steps fixed steps of dt from x under a constant
// u and returns the largest local error estimate seen.
func MaxStepError(sys dynamo.System, x dynamo.State, u dynamo.Control, dt float64, steps int) float64 {
	r := NewRK45()
	worst := 0.0
	t := 0.0
	for i := 0; i < steps; i++ {
		x = r.Step(sys, x, u, t, dt)
		t += dt
		worst = math.Max(worst, r.LastError())
	}
	return worst
}
