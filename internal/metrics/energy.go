package metrics

import (
	"math"
)

// Energy is the mean pole energy above the upright equilibrium, averaged
// over carts and steps. A balanced pole scores near zero.
type Energy struct {
	name        string
	mass        float64
	length      float64
	gravity     float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mass, length, gravity float64) *Energy {
	return &Energy{
		name:    "energy",
		mass:    mass,
		length:  length,
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s Sample) {
	if len(s.Obs) == 0 {
		return
	}
	sum := 0.0
	for _, x := range s.Obs {
		if len(x) < 4 {
			continue
		}
		theta, omega := x[2], x[3]
		ke := 0.5 * e.mass * e.length * e.length * omega * omega
		pe := e.mass * e.gravity * e.length * (1 - math.Cos(theta))
		sum += ke + pe
	}
	e.totalEnergy += sum / float64(len(s.Obs))
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
