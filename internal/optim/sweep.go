package optim

import (
	"context"
	"math"
	"time"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
	"gonum.org/v1/gonum/floats"
)

// Result grades one (method, tolerance) combination. Err marks
// combinations that failed to integrate.
type Result struct {
	Method   string
	Rtol     float64
	Atol     float64
	Drift    float64
	Steps    int
	Rejected int
	Elapsed  time.Duration
	Err      error
}

// Fixed-step methods ignore tolerances but are swept anyway so their
// step counts land in the same table.
type Sweep struct {
	Methods    []string
	Tolerances []float64
}

func (s *Sweep) Run(ctx context.Context, f dynamics.Field, y0 dynamics.State, duration float64, samples int) []Result {
	ts := make([]float64, samples)
	floats.Span(ts, 0, duration)

	results := make([]Result, 0, len(s.Methods)*len(s.Tolerances))
	for _, method := range s.Methods {
		for _, tol := range s.Tolerances {
			results = append(results, s.runOne(ctx, f, y0, ts, method, tol))
		}
	}
	return results
}

func (s *Sweep) runOne(ctx context.Context, f dynamics.Field, y0 dynamics.State, ts []float64, method string, tol float64) Result {
	res := Result{Method: method, Rtol: tol, Atol: tol}

	st, err := integrators.New(method)
	if err != nil {
		res.Err = err
		return res
	}

	opts := integrators.DefaultOptions()
	opts.Rtol = tol
	opts.Atol = tol
	solver := integrators.NewSolver(st, opts)

	start := time.Now()
	tr, err := solver.Integrate(ctx, f, y0.Clone(), ts)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}

	stats := solver.Stats()
	res.Steps = stats.Steps
	res.Rejected = stats.Rejected
	res.Drift = rolloutDrift(f, tr)
	return res
}

func rolloutDrift(f dynamics.Field, tr *dynamics.Trajectory) float64 {
	h, ok := f.(dynamics.Hamiltonian)
	if !ok || tr.Len() == 0 {
		return math.NaN()
	}
	e0 := h.Energy(tr.States[0])
	if e0 == 0 {
		return math.NaN()
	}
	return (h.Energy(tr.Last()) - e0) / e0
}

// Best returns the clean combination with the smallest absolute drift.
func Best(results []Result) (Result, bool) {
	best := Result{Drift: math.Inf(1)}
	found := false
	for _, r := range results {
		if r.Err != nil || math.IsNaN(r.Drift) {
			continue
		}
		if math.Abs(r.Drift) < math.Abs(best.Drift) {
			best = r
			found = true
		}
	}
	return best, found
}
