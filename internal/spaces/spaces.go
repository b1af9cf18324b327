// Package spaces describes the shape and domain of actions and observations.
//
// Descriptors are immutable values: constructors copy their inputs and
// accessors return copies, so an environment can hand its spaces out
// without risk of callers rewriting them.
package spaces

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/san-kum/multicart/internal/dynamo"
)

var ErrInvalidAction = errors.New("spaces: invalid action")

// InvalidActionError names the rejected value, its dynamic type and what
// was wrong with it.
type InvalidActionError struct {
	Value  any
	Reason string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("%v (%T) invalid: %s", e.Value, e.Value, e.Reason)
}

func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidAction
}

// Action is a joint binary action, one slot per unit: 0 pushes left,
// 1 pushes right.
type Action []int

func (a Action) Clone() Action {
	c := make(Action, len(a))
	copy(c, a)
	return c
}

// MultiBinary is a fixed-arity vector of independent {0, 1} choices.
type MultiBinary struct {
	n int
}

func NewMultiBinary(n int) MultiBinary {
	return MultiBinary{n: n}
}

func (m MultiBinary) N() int { return m.n }

// Contains returns nil when a has arity N and every element is 0 or 1,
// otherwise an *InvalidActionError.
func (m MultiBinary) Contains(a Action) error {
	if len(a) != m.n {
		return &InvalidActionError{
			Value:  a,
			Reason: fmt.Sprintf("arity %d, want %d", len(a), m.n),
		}
	}
	for i, v := range a {
		if v != 0 && v != 1 {
			return &InvalidActionError{
				Value:  a,
				Reason: fmt.Sprintf("element %d = %d not in {0, 1}", i, v),
			}
		}
	}
	return nil
}

func (m MultiBinary) Sample(rng *rand.Rand) Action {
	a := make(Action, m.n)
	for i := range a {
		a[i] = rng.Intn(2)
	}
	return a
}

// Box is a closed axis-aligned bound on a real vector.
type Box struct {
	low, high []float64
}

// NewBox panics when the bounds disagree in length or low exceeds high,
// since that is a programming error in the caller's space definition.
func NewBox(low, high []float64) Box {
	if len(low) != len(high) {
		panic(fmt.Sprintf("spaces: low length %d must match high length %d", len(low), len(high)))
	}
	for i := range low {
		if low[i] > high[i] {
			panic(fmt.Sprintf("spaces: low[%d]=%g exceeds high[%d]=%g", i, low[i], i, high[i]))
		}
	}
	return Box{low: clone(low), high: clone(high)}
}

// NewSymmetricBox bounds every component to [-high[i], high[i]].
func NewSymmetricBox(high []float64) Box {
	low := make([]float64, len(high))
	for i, h := range high {
		low[i] = -h
	}
	return NewBox(low, high)
}

func (b Box) Dim() int        { return len(b.low) }
func (b Box) Low() []float64  { return clone(b.low) }
func (b Box) High() []float64 { return clone(b.high) }

func (b Box) Contains(x dynamo.State) bool {
	if len(x) != len(b.low) {
		return false
	}
	for i, v := range x {
		if v < b.low[i] || v > b.high[i] {
			return false
		}
	}
	return true
}

// Tuple is an ordered product of boxes.
type Tuple struct {
	boxes []Box
}

func NewTuple(boxes ...Box) Tuple {
	cp := make([]Box, len(boxes))
	copy(cp, boxes)
	return Tuple{boxes: cp}
}

func (t Tuple) Len() int     { return len(t.boxes) }
func (t Tuple) At(i int) Box { return t.boxes[i] }

func (t Tuple) Contains(obs []dynamo.State) bool {
	if len(obs) != len(t.boxes) {
		return false
	}
	for i, x := range obs {
		if !t.boxes[i].Contains(x) {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}
