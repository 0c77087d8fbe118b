package analysis

import (
	"math"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
)

// LargestLyapunov estimates the largest Lyapunov exponent of f by the
// trajectory separation method: a sibling rollout starts eps away in
// the first component, the log separation growth is accumulated each
// step, and the pair is pulled back to distance eps whenever it drifts
// apart. Positive values indicate chaos; a damped oscillator comes out
// negative and a conservative one near zero.
func LargestLyapunov(f dynamics.Field, st integrators.Stepper, y0 dynamics.State, dt, duration, eps float64) float64 {
	if len(y0) == 0 || dt <= 0 || duration <= 0 || eps <= 0 {
		return math.NaN()
	}

	y := y0.Clone()
	yp := y0.Clone()
	yp[0] += eps

	sumLog := 0.0
	count := 0
	for t := 0.0; t < duration; t += dt {
		y = st.Step(f, t, y, dt)
		yp = st.Step(f, t, yp, dt)

		sep := yp.Sub(y).Norm()
		if sep <= 0 || !y.IsValid() || !yp.IsValid() {
			return math.NaN()
		}
		sumLog += math.Log(sep / eps)
		count++

		// Renormalize so the pair stays in the linear regime.
		scale := eps / sep
		for i := range yp {
			yp[i] = y[i] + (yp[i]-y[i])*scale
		}
	}

	if count == 0 {
		return math.NaN()
	}
	return sumLog / (float64(count) * dt)
}
