package control

import "github.com/san-kum/multicart/internal/dynamo"

type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	// Index selects the state component under control.
	Index int

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

// NewCartPolePID returns a PID on the pole angle tuned for the default
// cart parameters.
func NewCartPolePID() *PID {
	p := NewPID(-50, -1, -5, 0)
	p.Index = 2
	return p
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	if p.Index < 0 || p.Index >= len(x) {
		return dynamo.Control{0}
	}

	err := p.Target - x[p.Index]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return dynamo.Control{p.Kp * err}
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return dynamo.Control{u}
	}
	return dynamo.Control{p.Kp * err}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.prevT = 0
	p.first = true
}
