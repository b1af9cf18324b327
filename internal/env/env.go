package env

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"

	"github.com/san-kum/multicart/internal/cart"
	"github.com/san-kum/multicart/internal/config"
	"github.com/san-kum/multicart/internal/dynamo"
	"github.com/san-kum/multicart/internal/render"
	"github.com/san-kum/multicart/internal/spaces"
)

var (
	ErrUnsupportedMode = errors.New("env: unsupported render mode")
	ErrNotRestorable   = errors.New("env: unit state cannot be set")
)

type Mode string

const (
	ModeHuman    Mode = "human"
	ModeRGBArray Mode = "rgb_array"
)

// Modes lists the render modes in declaration order.
var Modes = []Mode{ModeHuman, ModeRGBArray}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
}

// Unit is one independently simulated subsystem.
type Unit interface {
	Advance(action int)
	Terminal() bool
	State() dynamo.State
	Reset()
	Render(v *render.Viewer, screenWidth int, init bool)
}

// Observation holds one state per unit, in unit order.
type Observation []dynamo.State

// Info is reserved for diagnostics; Step always returns it empty.
type Info map[string]any

type MultiCart struct {
	units            []Unit
	actionSpace      spaces.MultiBinary
	observationSpace spaces.Tuple

	// graceSteps is nil until a unit fails, then counts steps past that.
	graceSteps *int

	viewer       *render.Viewer
	screenWidth  int
	screenHeight int
	out          io.Writer
	log          *slog.Logger
}

type Option func(*MultiCart)

// WithLogger sets the logger receiving the post-done advisory.
func WithLogger(l *slog.Logger) Option {
	return func(e *MultiCart) { e.log = l }
}

// WithOutput sets where human-mode frames are written.
func WithOutput(w io.Writer) Option {
	return func(e *MultiCart) { e.out = w }
}

// WithUnits replaces the configured carts; the unit count defines N.
func WithUnits(units ...Unit) Option {
	return func(e *MultiCart) { e.units = units }
}

// New builds cfg.Env.Carts carts at offsets i*spacing, each seeded from
// its own draw of seed.
func New(cfg *config.Config, seed int64, opts ...Option) (*MultiCart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &MultiCart{
		screenWidth:  cfg.Env.ScreenWidth,
		screenHeight: cfg.Env.ScreenHeight,
		out:          os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if e.units == nil {
		seeds := rand.New(rand.NewSource(seed))
		e.units = make([]Unit, cfg.Env.Carts)
		for i := range e.units {
			c, err := cart.FromConfig(cfg, i, seeds.Int63())
			if err != nil {
				return nil, fmt.Errorf("cart %d: %w", i, err)
			}
			e.units[i] = c
		}
	}
	if len(e.units) == 0 {
		return nil, fmt.Errorf("%w: no units", config.ErrInvalid)
	}

	n := len(e.units)
	e.actionSpace = spaces.NewMultiBinary(n)

	box := spaces.NewSymmetricBox(ObservationBound(cfg))
	boxes := make([]spaces.Box, n)
	for i := range boxes {
		boxes[i] = box
	}
	e.observationSpace = spaces.NewTuple(boxes...)

	return e, nil
}

// ObservationBound is the per-unit upper bound: twice the failure
// thresholds for position and angle, float32 max for the velocities.
func ObservationBound(cfg *config.Config) []float64 {
	return []float64{
		cfg.Env.XThreshold * 2,
		math.MaxFloat32,
		cfg.Env.ThetaThreshold * 2,
		math.MaxFloat32,
	}
}

func (e *MultiCart) NumUnits() int { return len(e.units) }

func (e *MultiCart) ActionSpace() spaces.MultiBinary { return e.actionSpace }

func (e *MultiCart) ObservationSpace() spaces.Tuple { return e.observationSpace }

// StepsBeyondDone reports the grace counter; ok is false until a unit
// has failed in the current episode.
func (e *MultiCart) StepsBeyondDone() (steps int, ok bool) {
	if e.graceSteps == nil {
		return 0, false
	}
	return *e.graceSteps, true
}

// Step advances every unit by its slot of action and reduces the result.
// An action outside the action space fails before any unit moves.
func (e *MultiCart) Step(action spaces.Action) (Observation, float64, bool, Info, error) {
	if err := e.actionSpace.Contains(action); err != nil {
		return nil, 0, false, nil, err
	}

	for i, u := range e.units {
		u.Advance(action[i])
	}

	done := e.Done()

	var reward float64
	switch {
	case !done:
		reward = 1.0
	case e.graceSteps == nil:
		steps := 0
		e.graceSteps = &steps
		reward = 1.0
	default:
		if *e.graceSteps == 0 {
			e.log.Warn("step called after the episode already returned done; " +
				"call Reset once done is true, further steps are undefined behavior")
		}
		*e.graceSteps++
		reward = 0.0
	}

	return e.observe(), reward, done, Info{}, nil
}

// Done reports whether any unit is currently terminal.
func (e *MultiCart) Done() bool {
	done := false
	for _, u := range e.units {
		if u.Terminal() {
			done = true
		}
	}
	return done
}

// TerminalUnits lists the indices of units that are currently terminal.
func (e *MultiCart) TerminalUnits() []int {
	var idx []int
	for i, u := range e.units {
		if u.Terminal() {
			idx = append(idx, i)
		}
	}
	return idx
}

func (e *MultiCart) Reset() Observation {
	for _, u := range e.units {
		u.Reset()
	}
	e.graceSteps = nil
	return e.observe()
}

// Restorer is implemented by units whose state can be placed directly.
type Restorer interface {
	SetState(x dynamo.State) error
}

// Restore places every unit at its slot of obs and clears the grace
// counter. Every slot is checked before any unit is moved.
func (e *MultiCart) Restore(obs Observation) error {
	if len(obs) != len(e.units) {
		return &dynamo.DimensionError{What: "observation", Expected: len(e.units), Got: len(obs)}
	}
	restorers := make([]Restorer, len(e.units))
	for i, u := range e.units {
		r, ok := u.(Restorer)
		if !ok {
			return fmt.Errorf("%w: unit %d", ErrNotRestorable, i)
		}
		if !obs[i].IsValid() {
			return fmt.Errorf("unit %d: %w", i, dynamo.ErrInvalidState)
		}
		restorers[i] = r
	}
	for i, r := range restorers {
		if err := r.SetState(obs[i]); err != nil {
			return fmt.Errorf("unit %d: %w", i, err)
		}
	}
	e.graceSteps = nil
	return nil
}

func (e *MultiCart) observe() Observation {
	obs := make(Observation, len(e.units))
	for i, u := range e.units {
		obs[i] = u.State()
	}
	return obs
}

// Render draws every unit onto the shared viewer. Human mode writes the
// frame and returns a nil image; rgb_array returns the frame.
func (e *MultiCart) Render(mode Mode) (*image.RGBA, error) {
	if mode != ModeHuman && mode != ModeRGBArray {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}

	init := false
	if e.viewer == nil {
		e.viewer = render.NewViewer(e.screenWidth, e.screenHeight, e.out)
		init = true
	}

	for _, u := range e.units {
		if u.State() == nil {
			return nil, nil
		}
	}

	for _, u := range e.units {
		u.Render(e.viewer, e.screenWidth, init)
	}

	return e.viewer.Render(mode == ModeRGBArray)
}

// Close releases the viewer. Calling it without a viewer is a no-op.
func (e *MultiCart) Close() error {
	if e.viewer == nil {
		return nil
	}
	err := e.viewer.Close()
	e.viewer = nil
	return err
}
