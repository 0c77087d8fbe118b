// Package adjoint implements reverse-mode sensitivity analysis for ODE
// solutions via the adjoint method.
//
// [Solve] integrates a [dynamics.Differentiable] field forward and
// retains only the state values at the requested times. [Solution.Backward]
// then integrates an augmented system backward through each observation
// segment, accumulating gradients of a scalar loss with respect to the
// initial state, every observation time, and all field parameters. Memory
// therefore stays constant in the number of solver steps.
//
// The augmented state concatenates the reconstructed state, the state
// adjoint, the time adjoint and the flat parameter adjoint. Its dynamics
// come from one EvalVJP call per step, contracted with the negated state
// adjoint. All gradient math is float64.
package adjoint
