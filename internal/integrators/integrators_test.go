package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Dim() int { return 2 }

func (h *harmonicOscillator) Eval(t float64, y dynamics.State) dynamics.State {
	return dynamics.State{y[1], -y[0]}
}

func (h *harmonicOscillator) Energy(y dynamics.State) float64 {
	return 0.5 * (y[0]*y[0] + y[1]*y[1])
}

func TestRK4Accuracy(t *testing.T) {
	f := &harmonicOscillator{}
	integ := NewRK4()

	y := dynamics.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		y = integ.Step(f, float64(i)*dt, y, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(y[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", y[0], expectedX)
	}
	if math.Abs(y[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", y[1], expectedV)
	}
}

func TestStepperAccuracyOrder(t *testing.T) {
	f := &harmonicOscillator{}
	tests := []struct {
		name string
		st   Stepper
		tol  float64
	}{
		{"euler", NewEuler(), 1e-2},
		{"midpoint", NewMidpoint(), 1e-3},
		{"rk4", NewRK4(), 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := dynamics.State{1.0, 0.0}
			dt := 0.01
			for i := 0; i < 100; i++ {
				y = tt.st.Step(f, float64(i)*dt, y, dt)
			}
			if err := math.Abs(y[0] - math.Cos(1.0)); err > tt.tol {
				t.Errorf("%s error %e exceeds %e", tt.name, err, tt.tol)
			}
		})
	}
}

func TestDopri5_EnergyConservation(t *testing.T) {
	integ := NewDopri5()
	f := &harmonicOscillator{}
	y := dynamics.State{1.0, 0.0}

	initialEnergy := f.Energy(y)
	dt := 0.01
	for i := 0; i < 10000; i++ {
		y = integ.Step(f, float64(i)*dt, y, dt)
	}

	drift := math.Abs(f.Energy(y)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("dopri5 energy drift too high: %e", drift)
	}
}

func TestDopri5_StepAdaptive(t *testing.T) {
	integ := NewDopri5()
	f := &harmonicOscillator{}
	y0 := dynamics.State{1.0, 0.0}

	next, errNorm, hNext := integ.StepAdaptive(f, 0, y0, 0.1, 1e-6, 1e-12)

	if !next.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if errNorm < 0 {
		t.Errorf("negative error norm: %f", errNorm)
	}
	if hNext <= 0 {
		t.Errorf("StepAdaptive returned invalid next step: %f", hNext)
	}
}

func TestSolver_GridOutput(t *testing.T) {
	f := &harmonicOscillator{}
	solver := NewSolver(NewDopri5(), DefaultOptions())

	n := 101
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = 2 * math.Pi * float64(i) / float64(n-1)
	}

	tr, err := solver.Integrate(context.Background(), f, dynamics.State{1, 0}, ts)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if tr.Len() != n {
		t.Fatalf("got %d samples, want %d", tr.Len(), n)
	}
	for i, tv := range tr.Times {
		if tv != ts[i] {
			t.Fatalf("time %d: got %v, want %v", i, tv, ts[i])
		}
	}

	final := tr.Last()
	if math.Abs(final[0]-1.0) > 1e-5 || math.Abs(final[1]) > 1e-5 {
		t.Errorf("after full period: got [%.8f %.8f], want [1 0]", final[0], final[1])
	}
}

func TestSolver_BackwardIntegration(t *testing.T) {
	f := &harmonicOscillator{}
	solver := NewSolver(NewDopri5(), DefaultOptions())
	ctx := context.Background()

	fwd, err := solver.Integrate(ctx, f, dynamics.State{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	back, err := solver.Integrate(ctx, f, fwd.Last(), []float64{1, 0})
	if err != nil {
		t.Fatalf("backward: %v", err)
	}

	y0 := back.Last()
	if math.Abs(y0[0]-1.0) > 1e-5 || math.Abs(y0[1]) > 1e-5 {
		t.Errorf("backward pass did not recover y0: got [%.8f %.8f]", y0[0], y0[1])
	}
}

func TestSolver_FixedSubdivision(t *testing.T) {
	f := &harmonicOscillator{}

	opts := DefaultOptions()
	opts.StepSize = 0.25
	solver := NewSolver(NewEuler(), opts)

	_, err := solver.Integrate(context.Background(), f, dynamics.State{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if got := solver.Stats().Steps; got != 4 {
		t.Errorf("expected 4 substeps, got %d", got)
	}

	solver = NewSolver(NewEuler(), DefaultOptions())
	_, err = solver.Integrate(context.Background(), f, dynamics.State{1, 0}, []float64{0, 0.5, 1})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if got := solver.Stats().Steps; got != 2 {
		t.Errorf("expected one step per interval, got %d", got)
	}
}

func TestSolver_InvalidGrid(t *testing.T) {
	f := &harmonicOscillator{}
	solver := NewSolver(NewRK4(), DefaultOptions())
	ctx := context.Background()

	grids := [][]float64{
		{},
		{0, 1, 0.5},
		{0, 0, 1},
		{1, 0, 2},
	}
	for _, ts := range grids {
		if _, err := solver.Integrate(ctx, f, dynamics.State{1, 0}, ts); !errors.Is(err, dynamics.ErrTimeGrid) {
			t.Errorf("grid %v: expected ErrTimeGrid, got %v", ts, err)
		}
	}
}

func TestSolver_MaxSteps(t *testing.T) {
	f := &harmonicOscillator{}
	opts := DefaultOptions()
	opts.MaxSteps = 2
	opts.Rtol = 1e-12
	opts.Atol = 1e-14
	solver := NewSolver(NewDopri5(), opts)

	_, err := solver.Integrate(context.Background(), f, dynamics.State{1, 0}, []float64{0, 100})
	if !errors.Is(err, dynamics.ErrMaxSteps) {
		t.Errorf("expected ErrMaxSteps, got %v", err)
	}
}

type nanField struct{}

func (nanField) Dim() int { return 1 }
func (nanField) Eval(t float64, y dynamics.State) dynamics.State {
	return dynamics.State{math.NaN()}
}

func TestSolver_NaNField(t *testing.T) {
	solver := NewSolver(NewDopri5(), DefaultOptions())

	_, err := solver.Integrate(context.Background(), nanField{}, dynamics.State{1}, []float64{0, 1})
	if !errors.Is(err, dynamics.ErrStepTooSmall) {
		t.Errorf("expected ErrStepTooSmall, got %v", err)
	}
}

func TestSolver_ContextCancel(t *testing.T) {
	f := &harmonicOscillator{}
	solver := NewSolver(NewRK4(), DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := make([]float64, 100)
	for i := range ts {
		ts[i] = float64(i) * 0.01
	}
	if _, err := solver.Integrate(ctx, f, dynamics.State{1, 0}, ts); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range List() {
		st, err := New(name)
		if err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
		if st.Name() != name {
			t.Errorf("stepper %q reports name %q", name, st.Name())
		}
	}

	if _, err := New("leapfrog"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
