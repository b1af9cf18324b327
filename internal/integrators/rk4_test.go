package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/multicart/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	sys := &simpleDynamics{}
	integ := NewRK4()

	x0 := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	x := x0
	for i := 0; i < steps; i++ {
		x = integ.Step(sys, x, u, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

// reusingDynamics returns the same buffer from every Derive call.
type reusingDynamics struct {
	buf dynamo.State
}

func (r *reusingDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	if r.buf == nil {
		r.buf = make(dynamo.State, 2)
	}
	r.buf[0], r.buf[1] = x[1], -x[0]
	return r.buf
}

func (r *reusingDynamics) StateDim() int   { return 2 }
func (r *reusingDynamics) ControlDim() int { return 0 }

func TestRK4ReusedDeriveBuffer(t *testing.T) {
	x0 := dynamo.State{1.0, 0.5}
	want := NewRK4().Step(&simpleDynamics{}, x0, nil, 0, 0.1)
	got := NewRK4().Step(&reusingDynamics{}, x0, nil, 0, 0.1)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("step differs when Derive reuses its buffer:\n%s", diff)
	}
}

func TestEulerSingleStep(t *testing.T) {
	sys := &simpleDynamics{}
	integ := NewEuler()

	x := integ.Step(sys, dynamo.State{1.0, 0.5}, nil, 0, 0.1)
	want := dynamo.State{1.05, 0.4}

	if math.Abs(x[0]-want[0]) > 1e-12 || math.Abs(x[1]-want[1]) > 1e-12 {
		t.Errorf("Euler step = %v, want %v", x, want)
	}
}

func TestEulerLessAccurateThanRK4(t *testing.T) {
	sys := &simpleDynamics{}
	euler, rk4 := NewEuler(), NewRK4()

	xe, xr := dynamo.State{1, 0}, dynamo.State{1, 0}
	dt := 0.05
	for i := 0; i < 40; i++ {
		xe = euler.Step(sys, xe, nil, float64(i)*dt, dt)
		xr = rk4.Step(sys, xr, nil, float64(i)*dt, dt)
	}

	exact := math.Cos(40 * dt)
	if math.Abs(xe[0]-exact) <= math.Abs(xr[0]-exact) {
		t.Errorf("expected euler error (%g) to exceed rk4 error (%g)", math.Abs(xe[0]-exact), math.Abs(xr[0]-exact))
	}
}

func TestRegistry(t *testing.T) {
	if diff := cmp.Diff([]string{"euler", "rk4", "rk45", "semi_implicit", "verlet"}, Names()); diff != "" {
		t.Errorf("Names mismatch:\n%s", diff)
	}

	for _, name := range Names() {
		a, err := New(name)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if a == nil {
			t.Errorf("New(%q) returned nil", name)
		}
	}

	_, err := New("leapfrog")
	if !errors.Is(err, dynamo.ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}
