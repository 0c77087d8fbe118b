package dynamics

// Field is a time-dependent vector field dy/dt = f(t, y).
type Field interface {
	Dim() int
	Eval(t float64, y State) State
}

// BatchField evaluates the field at many states sharing one time.
// Implementations may exploit vectorized math; semantics must match
// calling Eval per state.
type BatchField interface {
	Field
	EvalBatch(t float64, ys []State) []State
}

// EvalBatch evaluates f at every state in ys, using the field's batched
// path when it has one.
func EvalBatch(f Field, t float64, ys []State) []State {
	if bf, ok := f.(BatchField); ok {
		return bf.EvalBatch(t, ys)
	}
	out := make([]State, len(ys))
	for i, y := range ys {
		out[i] = f.Eval(t, y)
	}
	return out
}

// Differentiable is a field that can contract its Jacobians with a row
// vector. EvalVJP returns the derivative f(t, y) together with the three
// vector-Jacobian products w·∂f/∂t, w·∂f/∂y and w·∂f/∂θ from a single
// evaluation. Inputs the field does not depend on get exact zeros.
//
// The adjoint backward pass requires this interface; plain fields can be
// integrated forward but not differentiated through.
type Differentiable interface {
	Field
	EvalVJP(t float64, y State, w State) (deriv State, tGrad float64, yGrad State, paramGrad []float64)

	// ParamSizes lists the element count of each parameter tensor in a
	// fixed order. The flat parameter gradient concatenates blocks in
	// the same order. Parameter-free fields return nil.
	ParamSizes() []int
}

// Hamiltonian reports the total energy of a state. Dissipative fields
// may implement it too; energy then decays rather than conserves.
type Hamiltonian interface {
	Energy(y State) float64
}

// Configurable exposes named physical parameters for runtime adjustment.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// NumParams sums the parameter tensor sizes of a differentiable field.
func NumParams(f Differentiable) int {
	n := 0
	for _, s := range f.ParamSizes() {
		n += s
	}
	return n
}
