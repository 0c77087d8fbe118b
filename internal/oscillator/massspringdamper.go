package oscillator

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 1.0
	DefaultDamping   = 0.0
)

// MassSpringDamper models m·x'' + d·x' + c·x = 0 as a first-order system
// over the state (x, v).
type MassSpringDamper struct {
	Mass      float64
	Damping   float64
	Stiffness float64
}

func NewMassSpringDamper() *MassSpringDamper {
	return &MassSpringDamper{
		Mass:      DefaultMass,
		Damping:   DefaultDamping,
		Stiffness: DefaultStiffness,
	}
}

func (m *MassSpringDamper) Dim() int { return 2 }

func (m *MassSpringDamper) Eval(t float64, y dynamics.State) dynamics.State {
	return dynamics.State{y[1], -(m.Damping*y[1] + m.Stiffness*y[0]) / m.Mass}
}

func (m *MassSpringDamper) EvalVJP(t float64, y, w dynamics.State) (dynamics.State, float64, dynamics.State, []float64) {
	deriv := m.Eval(t, y)
	yGrad := dynamics.State{
		-w[1] * m.Stiffness / m.Mass,
		w[0] - w[1]*m.Damping/m.Mass,
	}
	return deriv, 0, yGrad, nil
}

func (m *MassSpringDamper) ParamSizes() []int { return nil }

func (m *MassSpringDamper) Energy(y dynamics.State) float64 {
	return 0.5*m.Stiffness*y[0]*y[0] + 0.5*m.Mass*y[1]*y[1]
}

// Frequency returns the damped oscillation frequency in Hz.
func (m *MassSpringDamper) Frequency() float64 {
	w0sq := m.Stiffness / m.Mass
	gamma := m.Damping / (2 * m.Mass)
	wsq := w0sq - gamma*gamma
	if wsq <= 0 {
		return 0
	}
	return math.Sqrt(wsq) / (2 * math.Pi)
}

// Step integrates the system from y0 over duration, sampled at samples
// evenly spaced times starting at t=0.
func (m *MassSpringDamper) Step(ctx context.Context, y0 dynamics.State, duration float64, samples int) (*dynamics.Trajectory, error) {
	return Simulate(ctx, m, y0, duration, samples)
}

func (m *MassSpringDamper) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      m.Mass,
		"damping":   m.Damping,
		"stiffness": m.Stiffness,
	}
}

func (m *MassSpringDamper) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		m.Mass = value
	case "damping":
		m.Damping = value
	case "stiffness":
		m.Stiffness = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// Simulate integrates any field over [0, duration] with dopri5 defaults.
func Simulate(ctx context.Context, f dynamics.Field, y0 dynamics.State, duration float64, samples int) (*dynamics.Trajectory, error) {
	ts := floats.Span(make([]float64, samples), 0, duration)
	solver := integrators.NewSolver(integrators.NewDopri5(), integrators.DefaultOptions())
	return solver.Integrate(ctx, f, y0, ts)
}
