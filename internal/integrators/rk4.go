package integrators

import "github.com/san-kum/multicart/internal/dynamo"

// Classic fourth order Runge-Kutta tableau.
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Coeffs  = [4][3]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}}
	rk4Weights = [4]float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0}
)

// RK4 keeps its stage buffers between steps, so one instance must not be
// shared by carts stepping concurrently.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.scratch) == n {
		return
	}
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.resize(n)

	for s := 0; s < len(rk4Nodes); s++ {
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < s; j++ {
				sum += rk4Coeffs[s][j] * r.k[j][i]
			}
			r.scratch[i] = x[i] + dt*sum
		}
		// Derive may hand back a buffer it reuses.
		copy(r.k[s], sys.Derive(r.scratch, u, t+rk4Nodes[s]*dt))
	}

	next := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for s, w := range rk4Weights {
			sum += w * r.k[s][i]
		}
		next[i] = x[i] + dt*sum
	}
	return next
}
