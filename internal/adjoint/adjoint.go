package adjoint

import (
	"context"
	"fmt"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
)

// Config selects the solver used by both integration directions. The
// zero value picks dopri5 with default tolerances.
type Config struct {
	Method string
	Opts   integrators.Options
}

func DefaultConfig() Config {
	return Config{Method: "dopri5", Opts: integrators.DefaultOptions()}
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = "dopri5"
	}
	if c.Opts.Rtol == 0 && c.Opts.Atol == 0 {
		c.Opts.Rtol = integrators.DefaultOptions().Rtol
		c.Opts.Atol = integrators.DefaultOptions().Atol
	}
	return c
}

func (c Config) newSolver() (*integrators.Solver, error) {
	st, err := integrators.New(c.Method)
	if err != nil {
		return nil, err
	}
	return integrators.NewSolver(st, c.Opts), nil
}

// Solution holds the forward trajectory together with everything the
// backward pass needs. It keeps no solver internals, so concurrent
// solutions are independent of each other.
type Solution struct {
	Trajectory *dynamics.Trajectory

	field      dynamics.Differentiable
	cfg        Config
	paramSizes []int
	numParams  int
}

// Gradients is the result of one backward pass.
//
// Times holds the loss gradient with respect to every observation time
// in chronological order; Params holds one flat block per parameter
// tensor, or nil for parameter-free fields.
type Gradients struct {
	Y0     dynamics.State
	Times  []float64
	Params [][]float64
}

// Solve integrates f forward across ts and prepares a backward pass.
// The field must implement [dynamics.Differentiable]; anything else is a
// contract violation, not a recoverable condition.
func Solve(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64, cfg Config) (*Solution, error) {
	df, ok := f.(dynamics.Differentiable)
	if !ok {
		return nil, fmt.Errorf("%w: %T", dynamics.ErrNotDifferentiable, f)
	}

	cfg = cfg.withDefaults()
	solver, err := cfg.newSolver()
	if err != nil {
		return nil, err
	}

	tr, err := solver.Integrate(ctx, f, y0, ts)
	if err != nil {
		return nil, err
	}

	sizes := df.ParamSizes()
	return &Solution{
		Trajectory: tr,
		field:      df,
		cfg:        cfg,
		paramSizes: sizes,
		numParams:  dynamics.NumParams(df),
	}, nil
}

// Backward propagates the per-output loss gradients back to t0. grad
// must hold one row per observation time; a nil or all-zero row means
// the loss does not depend on that output. Each observation segment is
// integrated in a single backward solver call.
func (s *Solution) Backward(ctx context.Context, grad []dynamics.State) (*Gradients, error) {
	T := s.Trajectory.Len()
	n := s.field.Dim()
	if len(grad) != T {
		return nil, fmt.Errorf("%w: %d gradient rows for %d outputs", dynamics.ErrDimension, len(grad), T)
	}
	for i, g := range grad {
		if g != nil && len(g) != n {
			return nil, fmt.Errorf("%w: gradient row %d has %d components, want %d", dynamics.ErrDimension, i, len(g), n)
		}
	}

	aug := newAugField(s.field, s.numParams)
	solver, err := s.cfg.newSolver()
	if err != nil {
		return nil, err
	}

	row := func(i int) dynamics.State {
		if grad[i] == nil {
			return make(dynamics.State, n)
		}
		return grad[i]
	}

	adjY := row(T - 1).Clone()
	adjT := 0.0
	adjP := make([]float64, aug.slot)
	timeGrads := make([]float64, 0, T)

	for i := T - 1; i >= 1; i-- {
		ti, yi := s.Trajectory.At(i)

		// Effect of moving the current measurement time.
		dLdt := s.field.Eval(ti, yi).Dot(row(i))
		adjT -= dLdt
		timeGrads = append(timeGrads, dLdt)

		segment := []float64{ti, s.Trajectory.Times[i-1]}
		augTr, err := solver.Integrate(ctx, aug, aug.pack(yi, adjY, adjT, adjP), segment)
		if err != nil {
			return nil, fmt.Errorf("backward segment [%g, %g]: %w", segment[0], segment[1], err)
		}

		endY, endT, endP := aug.unpack(augTr.Last())
		copy(adjY, endY)
		adjT = endT
		copy(adjP, endP)

		adjY.AddScaled(1, row(i-1))
	}

	timeGrads = append(timeGrads, adjT)
	for l, r := 0, len(timeGrads)-1; l < r; l, r = l+1, r-1 {
		timeGrads[l], timeGrads[r] = timeGrads[r], timeGrads[l]
	}

	var params [][]float64
	if s.numParams > 0 {
		params = make([][]float64, len(s.paramSizes))
		off := 0
		for k, sz := range s.paramSizes {
			params[k] = append([]float64(nil), adjP[off:off+sz]...)
			off += sz
		}
	}

	return &Gradients{Y0: adjY, Times: timeGrads, Params: params}, nil
}
