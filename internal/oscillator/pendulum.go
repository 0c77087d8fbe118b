package oscillator

import (
	"fmt"
	"math"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

// Pendulum models a damped pendulum over the state (theta, omega).
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.0,
		Gravity: 9.81,
	}
}

func (p *Pendulum) Dim() int { return 2 }

func (p *Pendulum) Eval(t float64, y dynamics.State) dynamics.State {
	theta, omega := y[0], y[1]
	inertia := p.Mass * p.Length * p.Length
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return dynamics.State{omega, alpha}
}

func (p *Pendulum) EvalVJP(t float64, y, w dynamics.State) (dynamics.State, float64, dynamics.State, []float64) {
	deriv := p.Eval(t, y)
	inertia := p.Mass * p.Length * p.Length
	yGrad := dynamics.State{
		-w[1] * p.Gravity * math.Cos(y[0]) / p.Length,
		w[0] - w[1]*p.Damping/inertia,
	}
	return deriv, 0, yGrad, nil
}

func (p *Pendulum) ParamSizes() []int { return nil }

func (p *Pendulum) Energy(y dynamics.State) float64 {
	v := p.Length * y[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(y[0]))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
