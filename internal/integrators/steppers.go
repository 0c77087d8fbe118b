package integrators

import "github.com/TimFelixBeyer/NeuralODE/internal/dynamics"

// Stepper advances a state by one step of size h. Steppers may keep
// scratch buffers and are not safe for concurrent use.
type Stepper interface {
	Name() string
	Step(f dynamics.Field, t float64, y dynamics.State, h float64) dynamics.State
}

// AdaptiveStepper additionally estimates the local error of a trial step.
// The returned errNorm is scaled so values at most 1 mean the step meets
// the requested tolerances; hNext is the suggested size for the next trial.
type AdaptiveStepper interface {
	Stepper
	StepAdaptive(f dynamics.Field, t float64, y dynamics.State, h, rtol, atol float64) (next dynamics.State, errNorm, hNext float64)
}

type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(f dynamics.Field, t float64, y dynamics.State, h float64) dynamics.State {
	dy := f.Eval(t, y)
	result := make(dynamics.State, len(y))
	for i := range y {
		result[i] = y[i] + h*dy[i]
	}
	return result
}

type Midpoint struct {
	scratch dynamics.State
}

func NewMidpoint() *Midpoint { return &Midpoint{} }

func (m *Midpoint) Name() string { return "midpoint" }

func (m *Midpoint) Step(f dynamics.Field, t float64, y dynamics.State, h float64) dynamics.State {
	n := len(y)
	if len(m.scratch) != n {
		m.scratch = make(dynamics.State, n)
	}

	k1 := f.Eval(t, y)
	for i := 0; i < n; i++ {
		m.scratch[i] = y[i] + h*0.5*k1[i]
	}
	k2 := f.Eval(t+h*0.5, m.scratch)

	result := make(dynamics.State, n)
	for i := 0; i < n; i++ {
		result[i] = y[i] + h*k2[i]
	}
	return result
}

type RK4 struct {
	k1, k2, k3 dynamics.State
	scratch    dynamics.State
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamics.State, n)
		r.k2 = make(dynamics.State, n)
		r.k3 = make(dynamics.State, n)
		r.scratch = make(dynamics.State, n)
	}
}

func (r *RK4) Step(f dynamics.Field, t float64, y dynamics.State, h float64) dynamics.State {
	n := len(y)
	r.ensureScratch(n)

	copy(r.k1, f.Eval(t, y))

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k1[i]
	}
	copy(r.k2, f.Eval(t+h*0.5, r.scratch))

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*0.5*r.k2[i]
	}
	copy(r.k3, f.Eval(t+h*0.5, r.scratch))

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + h*r.k3[i]
	}
	k4 := f.Eval(t+h, r.scratch)

	result := make(dynamics.State, n)
	h6 := h / 6.0
	for i := 0; i < n; i++ {
		result[i] = y[i] + h6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+k4[i])
	}
	return result
}
