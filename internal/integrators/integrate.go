package integrators

import (
	"context"
	"math"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

type Options struct {
	Rtol        float64
	Atol        float64
	InitialStep float64
	StepSize    float64
	MinStep     float64
	MaxSteps    int
}

func DefaultOptions() Options {
	return Options{
		Rtol:     1e-6,
		Atol:     1e-12,
		MinStep:  1e-12,
		MaxSteps: 100000,
	}
}

// Stats reports work done by the most recent Integrate call.
type Stats struct {
	Steps    int
	Rejected int
}

// Solver drives a stepper across a time grid. Not safe for concurrent
// use; steppers carry scratch buffers.
type Solver struct {
	stepper Stepper
	opts    Options
	stats   Stats
}

func NewSolver(st Stepper, opts Options) *Solver {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultOptions().MaxSteps
	}
	if opts.MinStep <= 0 {
		opts.MinStep = DefaultOptions().MinStep
	}
	return &Solver{stepper: st, opts: opts}
}

func (s *Solver) Stats() Stats { return s.stats }

// Integrate returns the state at exactly the requested times, ts[0]
// being the time of y0. The grid must be strictly monotonic; decreasing
// grids integrate backward in time. Failure to meet tolerances within
// the step budget is fatal, there is no retry with looser settings.
func (s *Solver) Integrate(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64) (*dynamics.Trajectory, error) {
	if len(y0) != f.Dim() {
		return nil, dynamics.ErrDimension
	}
	if err := validateGrid(ts); err != nil {
		return nil, err
	}

	s.stats = Stats{}
	tr := &dynamics.Trajectory{
		Times:  make([]float64, len(ts)),
		States: make([]dynamics.State, len(ts)),
	}
	copy(tr.Times, ts)
	tr.States[0] = y0.Clone()
	if len(ts) == 1 {
		return tr, nil
	}

	if as, ok := s.stepper.(AdaptiveStepper); ok {
		return tr, s.integrateAdaptive(ctx, as, f, tr)
	}
	return tr, s.integrateFixed(ctx, f, tr)
}

func (s *Solver) integrateFixed(ctx context.Context, f dynamics.Field, tr *dynamics.Trajectory) error {
	y := tr.States[0].Clone()
	for i := 1; i < len(tr.Times); i++ {
		t, target := tr.Times[i-1], tr.Times[i]
		span := target - t

		sub := 1
		if s.opts.StepSize > 0 {
			sub = int(math.Ceil(math.Abs(span) / s.opts.StepSize))
			if sub < 1 {
				sub = 1
			}
		}
		h := span / float64(sub)

		for j := 0; j < sub; j++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			y = s.stepper.Step(f, t, y, h)
			t += h
			s.stats.Steps++
			if !y.IsValid() {
				return &dynamics.SolveError{T: t, Step: s.stats.Steps, Wrapped: dynamics.ErrInvalidState}
			}
		}
		tr.States[i] = y.Clone()
	}
	return nil
}

func (s *Solver) integrateAdaptive(ctx context.Context, as AdaptiveStepper, f dynamics.Field, tr *dynamics.Trajectory) error {
	y := tr.States[0].Clone()
	t := tr.Times[0]
	dir := 1.0
	if tr.Times[1] < tr.Times[0] {
		dir = -1.0
	}

	h := s.opts.InitialStep
	if h == 0 {
		h = tr.Times[1] - tr.Times[0]
	}
	if h*dir < 0 {
		h = -h
	}

	for i := 1; i < len(tr.Times); i++ {
		target := tr.Times[i]

		for (target-t)*dir > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if s.stats.Steps >= s.opts.MaxSteps {
				return &dynamics.SolveError{T: t, Step: s.stats.Steps, Wrapped: dynamics.ErrMaxSteps}
			}

			trial := h
			last := false
			if (t+trial-target)*dir >= 0 {
				trial = target - t
				last = true
			}

			next, errNorm, hNext := as.StepAdaptive(f, t, y, trial, s.opts.Rtol, s.opts.Atol)
			s.stats.Steps++

			if errNorm <= 1 {
				y = next
				if last {
					t = target
				} else {
					t += trial
				}
				if !y.IsValid() {
					return &dynamics.SolveError{T: t, Step: s.stats.Steps, Wrapped: dynamics.ErrInvalidState}
				}
			} else {
				s.stats.Rejected++
			}

			if math.Abs(hNext) < s.opts.MinStep {
				return &dynamics.SolveError{T: t, Step: s.stats.Steps, Wrapped: dynamics.ErrStepTooSmall}
			}
			h = hNext
		}

		tr.States[i] = y.Clone()
	}
	return nil
}

func validateGrid(ts []float64) error {
	if len(ts) == 0 {
		return dynamics.ErrTimeGrid
	}
	for i := 1; i < len(ts); i++ {
		d := ts[i] - ts[i-1]
		if d == 0 || (d > 0) != (ts[1] > ts[0]) {
			return dynamics.ErrTimeGrid
		}
	}
	return nil
}
