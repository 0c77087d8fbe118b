package integrators

import (
	"math"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

// Dormand-Prince coefficients (5th order with embedded 4th order)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type Dopri5 struct {
	safety   float64
	minScale float64
	maxScale float64

	scratch dynamics.State
}

func NewDopri5() *Dopri5 {
	return &Dopri5{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (d *Dopri5) Name() string { return "dopri5" }

func (d *Dopri5) Step(f dynamics.Field, t float64, y dynamics.State, h float64) dynamics.State {
	next, _, _ := d.StepAdaptive(f, t, y, h, 1e-6, 1e-12)
	return next
}

// StepAdaptive trials one step of size h. The error norm is scaled per
// component by atol + rtol*max(|y|, |next|); a value at most 1 accepts
// the step. hNext applies the standard safety-factor controller with
// growth clamped to [minScale, maxScale].
func (d *Dopri5) StepAdaptive(f dynamics.Field, t float64, y dynamics.State, h, rtol, atol float64) (dynamics.State, float64, float64) {
	n := len(y)
	if len(d.scratch) != n {
		d.scratch = make(dynamics.State, n)
	}
	x := d.scratch

	k1 := f.Eval(t, y)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*b21*k1[i]
	}
	k2 := f.Eval(t+a2*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
	}
	k3 := f.Eval(t+a3*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := f.Eval(t+a4*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := f.Eval(t+a5*h, x)

	for i := 0; i < n; i++ {
		x[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := f.Eval(t+h, x)

	next := make(dynamics.State, n)
	for i := 0; i < n; i++ {
		next[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := f.Eval(t+h, next)

	errNorm := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		sk := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(next[i]))
		errNorm = math.Max(errNorm, math.Abs(errEst)/sk)
	}

	var scale float64
	switch {
	case math.IsNaN(errNorm) || math.IsInf(errNorm, 0):
		errNorm = math.Inf(1)
		scale = d.minScale
	case errNorm > 1:
		scale = math.Max(d.minScale, d.safety*math.Pow(errNorm, -0.25))
	case errNorm > 0:
		scale = math.Min(d.maxScale, d.safety*math.Pow(errNorm, -0.2))
	default:
		scale = d.maxScale
	}

	return next, errNorm, h * scale
}
