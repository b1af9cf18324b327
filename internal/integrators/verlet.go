package integrators

import "github.com/san-kum/multicart/internal/dynamo"

// The integrators below treat the state as interleaved (position,
// velocity) pairs, as in [x, x_dot, theta, theta_dot]. A trailing odd
// component is advanced with plain Euler.

// SemiImplicitEuler updates each velocity first and moves the position
// with the new velocity.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	dx := sys.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	n := len(x) &^ 1
	for i := 0; i < n; i += 2 {
		result[i+1] = x[i+1] + dt*dx[i+1]
		result[i] = x[i] + dt*result[i+1]
	}
	if n < len(x) {
		result[n] = x[n] + dt*dx[n]
	}
	return result
}

// Verlet is velocity Verlet: positions advance with the current
// acceleration, velocities with the mean of old and new accelerations.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) ensureScratch(n int) {
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}
}

func (v *Verlet) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	v.ensureScratch(len(x))

	result := make(dynamo.State, len(x))
	dx := sys.Derive(x, u, t)
	dt2 := dt * dt
	n := len(x) &^ 1

	for i := 0; i < n; i += 2 {
		result[i] = x[i] + x[i+1]*dt + 0.5*dx[i+1]*dt2
		v.scratch[i] = result[i]
		v.scratch[i+1] = x[i+1]
	}
	if n < len(x) {
		result[n] = x[n] + dt*dx[n]
		v.scratch[n] = result[n]
	}

	dxNew := sys.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < n; i += 2 {
		result[i+1] = x[i+1] + (dx[i+1]+dxNew[i+1])*halfDt
	}

	return result
}
