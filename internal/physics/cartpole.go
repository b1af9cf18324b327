package physics

import (
	"math"

	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/dynamo"
)

// CartPole is the classic cart-pole of Barto, Sutton and Anderson.
// State is (x, x_dot, theta, theta_dot) with theta measured from upright,
// positive clockwise. PoleLength is the half-length of the pole.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 0.5,
		Gravity:    9.8,
	}
}

// FromConfig builds the cart-pole described by the physics section.
func FromConfig(p config.PhysicsConfig) *CartPole {
	return &CartPole{
		CartMass:   p.CartMass,
		PoleMass:   p.PoleMass,
		PoleLength: p.PoleHalfLength,
		Gravity:    p.Gravity,
	}
}

func (c *CartPole) StateDim() int {
	return 4
}

func (c *CartPole) ControlDim() int {
	return 1
}

func (c *CartPole) TotalMass() float64 {
	return c.CartMass + c.PoleMass
}

func (c *CartPole) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	mt := c.TotalMass()
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity

	sint := math.Sin(theta)
	cost := math.Cos(theta)

	temp := (force + mp*l*omega*omega*sint) / mt
	thetaacc := (g*sint - cost*temp) / (l * (4.0/3.0 - mp*cost*cost/mt))
	xacc := temp - mp*l*thetaacc*cost/mt

	return dynamo.State{vel, xacc, omega, thetaacc}
}
