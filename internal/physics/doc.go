// Package physics provides dynamical system models for simulation.
//
// Each model implements the [dynamo.System] interface, defining the
// differential equations governing the system's evolution. [CartPole]
// follows the classic balancing benchmark; every cart of the multi-cart
// environment runs its own instance.
package physics
