package env_test

import (
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/render"
)

// tiltingUnit leans its pole by tilt radians on every advance and fails
// once the angle passes threshold.
type tiltingUnit struct {
	state     dynamo.State
	tilt      float64
	threshold float64
	actions   []int
	resets    int
	inits     []bool
}

func newTiltingUnit(tilt, threshold float64) *tiltingUnit {
	return &tiltingUnit{state: dynamo.State{0, 0, 0, 0}, tilt: tilt, threshold: threshold}
}

func (u *tiltingUnit) Advance(action int) {
	u.actions = append(u.actions, action)
	u.state[2] += u.tilt
}

func (u *tiltingUnit) Terminal() bool {
	return u.state[2] > u.threshold || u.state[2] < -u.threshold
}

func (u *tiltingUnit) State() dynamo.State { return u.state.Clone() }

func (u *tiltingUnit) Reset() {
	u.resets++
	u.state = dynamo.State{0, 0, 0, 0}
}

func (u *tiltingUnit) Render(v *render.Viewer, screenWidth int, init bool) {
	u.inits = append(u.inits, init)
}

// statelessUnit has not been given a state yet.
type statelessUnit struct {
	tiltingUnit
}

func (u *statelessUnit) State() dynamo.State { return nil }
