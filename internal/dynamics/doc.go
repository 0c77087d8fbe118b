// Package dynamics defines the core types shared by the simulation,
// learning, and evaluation layers.
//
// A [Field] is a time-dependent vector field dy/dt = f(t, y). Reference
// systems and learned models both satisfy it, so every consumer (solvers,
// the adjoint pass, the evaluation harness) works against the same
// interface:
//
//   - [Field]: evaluate the derivative at one state
//   - [BatchField]: optional vectorized evaluation over many states
//   - [Differentiable]: fields that can also produce vector-Jacobian
//     products, required by the adjoint backward pass
//   - [Hamiltonian]: fields with a well-defined total energy
//
// States are flat float64 vectors. All computation is double precision;
// narrower types appear only at storage boundaries.
package dynamics
