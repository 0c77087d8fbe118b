// Package integrators provides fixed-step and adaptive ODE solvers over
// [dynamics.Field] values.
//
//   - [Euler]: first order, one evaluation per step
//   - [Midpoint]: second order
//   - [RK4]: classic fourth order
//   - [Dopri5]: Dormand-Prince 5(4) with embedded error control
//
// A [Solver] drives a stepper across a caller-supplied time grid and
// reports the state at exactly those times. Grids may run forward or
// backward in time; the adjoint pass relies on the backward direction.
package integrators
