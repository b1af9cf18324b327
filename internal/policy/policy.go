// Package policy chooses push actions for every cart of a MultiCart.
package policy

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/san-kum/multicart/internal/control"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/env"
	"github.com/san-kum/multicart/internal/spaces"
)

var ErrUnknownPolicy = errors.New("policy: unknown policy")

type Policy interface {
	Name() string
	Act(obs env.Observation) spaces.Action
	Reset()
}

// Random samples the action space uniformly.
type Random struct {
	space spaces.MultiBinary
	rng   *rand.Rand
}

func NewRandom(space spaces.MultiBinary, seed int64) *Random {
	return &Random{space: space, rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Act(obs env.Observation) spaces.Action {
	return r.space.Sample(r.rng)
}

func (r *Random) Reset() {}

// Controlled runs one controller per cart and pushes right when the
// requested force is positive.
type Controlled struct {
	name        string
	controllers []dynamo.Controller
	tau         float64
	t           float64
}

func NewControlled(name string, tau float64, controllers ...dynamo.Controller) *Controlled {
	return &Controlled{name: name, controllers: controllers, tau: tau}
}

func (c *Controlled) Name() string { return c.name }

func (c *Controlled) Act(obs env.Observation) spaces.Action {
	action := make(spaces.Action, len(c.controllers))
	for i, ctrl := range c.controllers {
		if i >= len(obs) {
			break
		}
		u := ctrl.Compute(obs[i], c.t)
		if len(u) > 0 && u[0] > 0 {
			action[i] = 1
		}
	}
	c.t += c.tau
	return action
}

func (c *Controlled) Reset() {
	c.t = 0
	for _, ctrl := range c.controllers {
		if r, ok := ctrl.(dynamo.Resetter); ok {
			r.Reset()
		}
	}
}

var registry = map[string]func(space spaces.MultiBinary, tau float64, seed int64) Policy{
	"random": func(space spaces.MultiBinary, tau float64, seed int64) Policy {
		return NewRandom(space, seed)
	},
	"lqr": func(space spaces.MultiBinary, tau float64, seed int64) Policy {
		ctrls := make([]dynamo.Controller, space.N())
		for i := range ctrls {
			ctrls[i] = control.NewCartPoleLQR()
		}
		return NewControlled("lqr", tau, ctrls...)
	},
	"pid": func(space spaces.MultiBinary, tau float64, seed int64) Policy {
		ctrls := make([]dynamo.Controller, space.N())
		for i := range ctrls {
			ctrls[i] = control.NewCartPolePID()
		}
		return NewControlled("pid", tau, ctrls...)
	},
}

// New builds the named policy for the given action space. tau is the
// environment timestep, used by time-aware controllers.
func New(name string, space spaces.MultiBinary, tau float64, seed int64) (Policy, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	return fn(space, tau, seed), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
