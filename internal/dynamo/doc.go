// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: feedback controller interface
//
// # Example
//
//	sys := physics.NewCartPole()
//	integ := integrators.NewEuler()
//	x = integ.Step(sys, x, dynamo.Control{10}, t, 0.02)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
// Give every simulated unit its own integrator.
package dynamo
