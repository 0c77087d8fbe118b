package adjoint

import "github.com/TimFelixBeyer/NeuralODE/internal/dynamics"

// augmented layout: [ y | adjY | adjT | adjP ]. Parameter-free fields
// still carry one placeholder slot so the trailing block never has zero
// width.
type augField struct {
	f    dynamics.Differentiable
	n    int
	slot int

	w dynamics.State
}

func newAugField(f dynamics.Differentiable, numParams int) *augField {
	slot := numParams
	if slot == 0 {
		slot = 1
	}
	return &augField{
		f:    f,
		n:    f.Dim(),
		slot: slot,
		w:    make(dynamics.State, f.Dim()),
	}
}

func (a *augField) Dim() int { return 2*a.n + 1 + a.slot }

func (a *augField) pack(y, adjY dynamics.State, adjT float64, adjP []float64) dynamics.State {
	aug := make(dynamics.State, a.Dim())
	copy(aug[:a.n], y)
	copy(aug[a.n:2*a.n], adjY)
	aug[2*a.n] = adjT
	copy(aug[2*a.n+1:], adjP)
	return aug
}

func (a *augField) unpack(aug dynamics.State) (adjY dynamics.State, adjT float64, adjP []float64) {
	return dynamics.State(aug[a.n : 2*a.n]), aug[2*a.n], aug[2*a.n+1:]
}

func (a *augField) Eval(t float64, aug dynamics.State) dynamics.State {
	y := dynamics.State(aug[:a.n])
	adjY := aug[a.n : 2*a.n]
	for i := range a.w {
		a.w[i] = -adjY[i]
	}

	deriv, tGrad, yGrad, pGrad := a.f.EvalVJP(t, y, a.w)

	out := make(dynamics.State, a.Dim())
	copy(out[:a.n], deriv)
	// A nil block means the output does not depend on that input; the
	// gradient is an exact zero, not an error.
	if yGrad != nil {
		copy(out[a.n:2*a.n], yGrad)
	}
	out[2*a.n] = tGrad
	if pGrad != nil {
		copy(out[2*a.n+1:], pGrad)
	}
	return out
}
