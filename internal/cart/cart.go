// Package cart implements one independently simulated cart-pole unit.
package cart

import (
	"math"
	"math/rand"

	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/integrators"
	"github.com/san-kum/multicart/internal/physics"
	"github.com/san-kum/multicart/internal/render"
)

type Params struct {
	XThreshold     float64
	ThetaThreshold float64
	ForceMag       float64
	Tau            float64
	ResetNoise     float64
	LaneWidth      float64
}

func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		XThreshold:     cfg.Env.XThreshold,
		ThetaThreshold: cfg.Env.ThetaThreshold,
		ForceMag:       cfg.Physics.ForceMag,
		Tau:            cfg.Physics.Tau,
		ResetNoise:     cfg.Physics.ResetNoise,
		LaneWidth:      cfg.Env.Spacing,
	}
}

// Cart owns its state exclusively; callers only ever see copies.
type Cart struct {
	offset float64
	params Params
	sys    *physics.CartPole
	integ  dynamo.Integrator
	rng    *rand.Rand
	state  dynamo.State
	t      float64
	geom   *geometry
}

// New builds a cart and draws its first random state, so a fresh cart
// always has a state to report and render.
func New(offset float64, p Params, sys *physics.CartPole, integ dynamo.Integrator, rng *rand.Rand) *Cart {
	c := &Cart{
		offset: offset,
		params: p,
		sys:    sys,
		integ:  integ,
		rng:    rng,
	}
	c.Reset()
	return c
}

// FromConfig builds the cart at lane index i with its own integrator and
// random source.
func FromConfig(cfg *config.Config, i int, seed int64) (*Cart, error) {
	integ, err := integrators.New(cfg.Physics.Integrator)
	if err != nil {
		return nil, err
	}
	sys := physics.FromConfig(cfg.Physics)
	rng := rand.New(rand.NewSource(seed))
	return New(float64(i)*cfg.Env.Spacing, ParamsFromConfig(cfg), sys, integ, rng), nil
}

// Advance applies one tau-long push: action 1 pushes right, anything else
// left. It keeps integrating after the cart has failed.
func (c *Cart) Advance(action int) {
	force := -c.params.ForceMag
	if action == 1 {
		force = c.params.ForceMag
	}
	c.state = c.integ.Step(c.sys, c.state, dynamo.Control{force}, c.t, c.params.Tau)
	c.t += c.params.Tau
}

func (c *Cart) Terminal() bool {
	x, theta := c.state[0], c.state[2]
	return x < -c.params.XThreshold || x > c.params.XThreshold ||
		theta < -c.params.ThetaThreshold || theta > c.params.ThetaThreshold
}

func (c *Cart) State() dynamo.State {
	return c.state.Clone()
}

// SetState places the cart at x without touching its clock.
func (c *Cart) SetState(x dynamo.State) error {
	if len(x) != c.sys.StateDim() {
		return &dynamo.DimensionError{What: "cart state", Expected: c.sys.StateDim(), Got: len(x)}
	}
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	c.state = x.Clone()
	return nil
}

// Reset draws every component uniformly from (-noise, noise).
func (c *Cart) Reset() {
	n := c.params.ResetNoise
	c.state = make(dynamo.State, 4)
	for i := range c.state {
		c.state[i] = (c.rng.Float64()*2 - 1) * n
	}
	c.t = 0
}

type geometry struct {
	cartTrans *render.Transform
	poleTrans *render.Transform
	scale     float64
	cartY     float64
}

// Render draws the cart in its lane. Geometry is attached to the viewer
// only when init is set; later frames just move the transforms.
func (c *Cart) Render(v *render.Viewer, screenWidth int, init bool) {
	if init || c.geom == nil {
		c.geom = c.buildGeometry(v, screenWidth)
	}
	g := c.geom
	cartX := c.offset + c.params.LaneWidth/2 + c.state[0]*g.scale
	g.cartTrans.SetTranslation(cartX, g.cartY)
	g.poleTrans.SetRotation(-c.state[2])
}

func (c *Cart) buildGeometry(v *render.Viewer, screenWidth int) *geometry {
	lane := c.params.LaneWidth
	scale := lane / (2 * c.params.XThreshold)
	cartY := float64(v.Height()) / 4

	poleWidth := math.Max(1, 0.08*scale)
	poleLen := scale * 2 * c.sys.PoleLength
	cartWidth := 0.4 * scale
	cartHeight := 0.24 * scale
	axleOffset := cartHeight / 4

	g := &geometry{
		cartTrans: &render.Transform{},
		poleTrans: &render.Transform{Y: axleOffset},
		scale:     scale,
		cartY:     cartY,
	}

	trackEnd := math.Min(c.offset+lane, float64(screenWidth-1))
	track := render.NewLine(render.Point{X: c.offset, Y: cartY}, render.Point{X: trackEnd, Y: cartY})

	l, r, t, b := -cartWidth/2, cartWidth/2, cartHeight/2, -cartHeight/2
	body := render.NewPolygon([]render.Point{{X: l, Y: b}, {X: l, Y: t}, {X: r, Y: t}, {X: r, Y: b}}, true, g.cartTrans)

	l, r, t, b = -poleWidth/2, poleWidth/2, poleLen-poleWidth/2, -poleWidth/2
	pole := render.NewPolygon([]render.Point{{X: l, Y: b}, {X: l, Y: t}, {X: r, Y: t}, {X: r, Y: b}}, false, g.poleTrans, g.cartTrans)

	axle := render.NewCircle(render.Point{}, poleWidth/2, g.poleTrans, g.cartTrans)

	v.AddGeom(track)
	v.AddGeom(body)
	v.AddGeom(pole)
	v.AddGeom(axle)
	return g
}
