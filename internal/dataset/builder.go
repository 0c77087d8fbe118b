package dataset

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
	"gonum.org/v1/gonum/floats"
)

type Config struct {
	Series  int
	Samples int
	Dt      float64
	Seed    int64
}

func DefaultConfig() Config {
	return Config{
		Series:  51,
		Samples: 1001,
		Dt:      0.01,
	}
}

// Set holds trajectory states and their true derivatives, indexed
// [series][step]. The first half of the training series starts inside
// the unit interval (interpolation regime), the second half is shifted
// by pi-1 (extrapolation regime). Validation holds two fixed series:
// extrapolation first, interpolation second.
type Set struct {
	TrainX [][]dynamics.State
	TrainY [][]dynamics.State
	ValX   [][]dynamics.State
	ValY   [][]dynamics.State

	Dt   float64
	Seed int64
}

// Validation initial conditions, (position, velocity).
var (
	ValExtrap = dynamics.State{5.0, 0.5}
	ValInterp = dynamics.State{1.5, 0.5}
)

// Build simulates cfg.Series trajectories of f and pairs every state
// with the field's derivative there. Initial positions are sampled
// uniformly, zero initial velocity; the same seed reproduces the same
// set exactly. Series are integrated concurrently, so f.Eval must be
// safe for concurrent use.
func Build(ctx context.Context, f dynamics.Field, cfg Config) (*Set, error) {
	if f.Dim() != 2 {
		return nil, fmt.Errorf("%w: dataset builder needs a 2d field, got %d", dynamics.ErrDimension, f.Dim())
	}
	if cfg.Series < 2 || cfg.Samples < 2 || cfg.Dt <= 0 {
		return nil, fmt.Errorf("dataset: invalid config %+v", cfg)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	duration := float64(cfg.Samples-1) * cfg.Dt

	// Interpolation regime first, then the shifted extrapolation regime.
	x0 := make([]float64, cfg.Series)
	for i := 0; i < cfg.Series/2; i++ {
		x0[i] = rng.Float64()
	}
	for i := cfg.Series / 2; i < cfg.Series; i++ {
		x0[i] = rng.Float64() + math.Pi - 1
	}

	set := &Set{
		TrainX: make([][]dynamics.State, cfg.Series),
		TrainY: make([][]dynamics.State, cfg.Series),
		Dt:     cfg.Dt,
		Seed:   cfg.Seed,
	}

	ts := floats.Span(make([]float64, cfg.Samples), 0, duration)

	// Steppers carry scratch buffers, so every goroutine gets its own
	// solver. Initial conditions are drawn up front, which keeps the
	// output independent of scheduling.
	simulate := func(y0 dynamics.State) ([]dynamics.State, []dynamics.State, error) {
		solver := integrators.NewSolver(integrators.NewDopri5(), integrators.DefaultOptions())
		tr, err := solver.Integrate(ctx, f, y0, ts)
		if err != nil {
			return nil, nil, err
		}
		return tr.States, dynamics.EvalBatch(f, 0, tr.States), nil
	}

	var wg sync.WaitGroup
	errs := make([]error, cfg.Series)
	for i := 0; i < cfg.Series; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			xs, ys, err := simulate(dynamics.State{x0[idx], 0})
			if err != nil {
				errs[idx] = fmt.Errorf("dataset: series %d: %w", idx, err)
				return
			}
			set.TrainX[idx] = xs
			set.TrainY[idx] = ys
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, y0 := range []dynamics.State{ValExtrap, ValInterp} {
		xs, ys, err := simulate(y0.Clone())
		if err != nil {
			return nil, fmt.Errorf("dataset: validation series %v: %w", y0, err)
		}
		set.ValX = append(set.ValX, xs)
		set.ValY = append(set.ValY, ys)
	}

	return set, nil
}

// Validate checks that states and targets agree in shape.
func (s *Set) Validate() error {
	check := func(name string, xs, ys [][]dynamics.State) error {
		if len(xs) != len(ys) {
			return fmt.Errorf("%w: %s has %d state series but %d target series", dynamics.ErrDimension, name, len(xs), len(ys))
		}
		for i := range xs {
			if len(xs[i]) != len(ys[i]) {
				return fmt.Errorf("%w: %s series %d has %d states but %d targets", dynamics.ErrDimension, name, i, len(xs[i]), len(ys[i]))
			}
			for j := range xs[i] {
				if len(xs[i][j]) != len(ys[i][j]) {
					return fmt.Errorf("%w: %s series %d step %d", dynamics.ErrDimension, name, i, j)
				}
			}
		}
		return nil
	}
	if err := check("train", s.TrainX, s.TrainY); err != nil {
		return err
	}
	return check("val", s.ValX, s.ValY)
}

// Samples reports the number of steps per series.
func (s *Set) Samples() int {
	if len(s.TrainX) == 0 {
		return 0
	}
	return len(s.TrainX[0])
}

// Flatten lists every training pair in series order, for minibatching.
func (s *Set) Flatten() (xs, ys []dynamics.State) {
	for i := range s.TrainX {
		xs = append(xs, s.TrainX[i]...)
		ys = append(ys, s.TrainY[i]...)
	}
	return xs, ys
}
