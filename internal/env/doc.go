// Package env composes independently simulated cart-pole units into one
// steppable environment.
//
// A [MultiCart] owns N units in a fixed order. Slot i of the joint action
// drives unit i, slot i of the observation is unit i's state, and the
// episode is done as soon as any unit is terminal. Every unit keeps
// advancing after another one fails.
//
// # Rewards after failure
//
// The step on which the first unit fails still earns reward 1. Every later
// step earns 0, and the first of those logs a warning that the caller
// should have called [MultiCart.Reset]. The done flag is never latched: it
// is recomputed from the live units on every call.
//
// # Rendering
//
// [MultiCart.Render] acquires a viewer on first use; [MultiCart.Close]
// releases it. Callers own that obligation, nothing closes it for them.
package env
