package integrators

import "github.com/san-kum/multicart/internal/dynamo"

// Euler is the explicit forward Euler step used by the classic cart-pole
// benchmark: every component advances with the derivative at the start of
// the step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return x.AXPY(dt, sys.Derive(x, u, t))
}
