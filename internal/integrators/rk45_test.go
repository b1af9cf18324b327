package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/physics"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_Accuracy(t *testing.T) {
	integrator := NewRK45()
	sys := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(sys, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Fatal("RK45 produced invalid state")
	}
	if math.Abs(x[0]-math.Cos(10)) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], math.Cos(10))
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	sys := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := sys.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(sys, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(sys.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_ErrorEstimateShrinksWithDt(t *testing.T) {
	sys := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.5}

	coarse := NewRK45()
	coarse.Step(sys, x0, nil, 0, 0.2)
	fine := NewRK45()
	fine.Step(sys, x0, nil, 0, 0.02)

	if coarse.LastError() <= 0 {
		t.Fatalf("expected a positive error estimate, got %e", coarse.LastError())
	}
	if fine.LastError() >= coarse.LastError() {
		t.Errorf("error estimate should shrink with dt: %e >= %e", fine.LastError(), coarse.LastError())
	}
}

func TestRK45_TracksFineReferenceOnCartPole(t *testing.T) {
	sys := physics.NewCartPole()
	u := dynamo.Control{10}
	x0 := dynamo.State{0, 0, 0.05, 0}
	const (
		dt    = 0.02
		steps = 20
		sub   = 1000
	)

	ref := x0.Clone()
	fine := NewRK4()
	h := dt / sub
	for i := 0; i < steps*sub; i++ {
		ref = fine.Step(sys, ref, u, float64(i)*h, h)
	}

	rk4, rk45 := NewRK4(), NewRK45()
	x4, x45 := x0.Clone(), x0.Clone()
	for i := 0; i < steps; i++ {
		x4 = rk4.Step(sys, x4, u, float64(i)*dt, dt)
		x45 = rk45.Step(sys, x45, u, float64(i)*dt, dt)
	}

	for i := range ref {
		if d := math.Abs(x4[i] - ref[i]); d > 1e-5 {
			t.Errorf("rk4 component %d: %.9f, reference %.9f", i, x4[i], ref[i])
		}
		if d := math.Abs(x45[i] - ref[i]); d > 1e-7 {
			t.Errorf("rk45 component %d: %.9f, reference %.9f", i, x45[i], ref[i])
		}
	}
}

func TestMaxStepErrorGrowsWithDt(t *testing.T) {
	sys := physics.NewCartPole()
	x0 := dynamo.State{0, 0, 0.05, 0}
	u := dynamo.Control{10}

	small := MaxStepError(sys, x0, u, 0.005, 40)
	large := MaxStepError(sys, x0, u, 0.02, 10)

	if small <= 0 || large <= 0 {
		t.Fatalf("expected positive estimates, got %e and %e", small, large)
	}
	if small >= large {
		t.Errorf("finer steps should estimate less error: %e >= %e", small, large)
	}
	if x0[2] != 0.05 {
		t.Error("initial state was modified")
	}
}
