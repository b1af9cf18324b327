// Package control provides feedback controllers for balancing carts.
//
// Controllers implement [dynamo.Controller] and return a continuous force
// request; policies turn its sign into a discrete push:
//
//   - [PID]: Proportional-Integral-Derivative on a single state index
//   - [LQR]: Linear Quadratic Regulator around a target state
//
// # Usage
//
//	pid := control.NewPID(-50, 0, -5, 0)
//	pid.Index = 2 // pole angle
//	u := pid.Compute(x, t)
//
// Controllers implementing [dynamo.Resetter] are reset between episodes.
package control
