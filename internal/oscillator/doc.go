// Package oscillator provides the analytic reference systems the lab
// trains against.
//
// Each system implements [dynamics.Field] plus the interfaces the
// evaluation harness relies on:
//
//   - [MassSpringDamper]: linear second-order oscillator, the primary
//     benchmark system
//   - [Pendulum]: nonlinear oscillator for cross-checks
//
// Both implement [dynamics.Differentiable] with closed-form
// vector-Jacobian products and [dynamics.Hamiltonian] for energy
// tracking. Neither carries trainable parameters, which exercises the
// parameter-free path of the adjoint pass.
package oscillator
