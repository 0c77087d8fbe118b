package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/TimFelixBeyer/NeuralODE/internal/config"
	"github.com/TimFelixBeyer/NeuralODE/internal/dataset"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/eval"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
	"github.com/TimFelixBeyer/NeuralODE/internal/oscillator"
	"github.com/TimFelixBeyer/NeuralODE/internal/plot"
)

// Harness evaluates a candidate field against the stored validation
// trajectories. The grid is the one the dataset was sampled on, so
// predictions and truth align sample by sample.
type Harness struct {
	candidate dynamics.Field
	reference dynamics.Field
	valX      [][]dynamics.State
	dt        float64

	solver  *integrators.Solver
	results *eval.ResultsWriter
	plotDir string
	start   time.Time

	stiffness, mass float64
}

// Report is the outcome of one harness run.
type Report struct {
	Epoch    int
	WallTime float64

	EnergyDriftInterp, EnergyDriftExtrap float64
	PhaseErrorInterp, PhaseErrorExtrap   float64
	TrajErrInterp, TrajErrExtrap         float64

	PlotPath    string
	ResultsPath string
}

func New(cfg *config.Config, candidate dynamics.Field, set *dataset.Set, start time.Time) (*Harness, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if len(set.ValX) != 2 {
		return nil, fmt.Errorf("experiment: need 2 validation series, got %d", len(set.ValX))
	}

	stepper, err := integrators.New(cfg.Solver.Method)
	if err != nil {
		return nil, err
	}
	opts := integrators.DefaultOptions()
	opts.Rtol = cfg.Eval.Rtol
	opts.Atol = cfg.Eval.Atol

	reference := oscillator.NewMassSpringDamper()
	reference.Mass = cfg.Oscillator.Mass
	reference.Damping = cfg.Oscillator.Damping
	reference.Stiffness = cfg.Oscillator.Stiffness

	results := eval.NewResultsWriter(cfg.Eval.ResultsDir, eval.RunStamp(start),
		cfg.Train.LearningRate, len(set.TrainX), cfg.Train.BatchSize)

	return &Harness{
		candidate: candidate,
		reference: reference,
		valX:      set.ValX,
		dt:        set.Dt,
		solver:    integrators.NewSolver(stepper, opts),
		results:   results,
		plotDir:   cfg.Eval.PlotDir,
		start:     start,
		stiffness: cfg.Oscillator.Stiffness,
		mass:      cfg.Oscillator.Mass,
	}, nil
}

// ResultsPath reports where Run appends its rows.
func (h *Harness) ResultsPath() string { return h.results.Path() }

// Run rolls the candidate out from the extrapolation and interpolation
// initial conditions, computes the six metrics against the stored
// truth, renders {epoch:03d}.png, and appends one results row.
func (h *Harness) Run(ctx context.Context, epoch int) (*Report, error) {
	n := len(h.valX[0])
	ts := floats.Span(make([]float64, n), 0, float64(n-1)*h.dt)

	predExtrap, err := h.solver.Integrate(ctx, h.candidate, h.valX[0][0].Clone(), ts)
	if err != nil {
		return nil, fmt.Errorf("experiment: extrapolation rollout: %w", err)
	}
	predInterp, err := h.solver.Integrate(ctx, h.candidate, h.valX[1][0].Clone(), ts)
	if err != nil {
		return nil, fmt.Errorf("experiment: interpolation rollout: %w", err)
	}

	trueExtrap := &dynamics.Trajectory{Times: ts, States: h.valX[0]}
	trueInterp := &dynamics.Trajectory{Times: ts, States: h.valX[1]}

	report := &Report{
		Epoch:    epoch,
		WallTime: time.Since(h.start).Seconds(),

		EnergyDriftInterp: eval.RelativeEnergyDrift(predInterp, trueInterp, h.stiffness, h.mass),
		EnergyDriftExtrap: eval.RelativeEnergyDrift(predExtrap, trueExtrap, h.stiffness, h.mass),
		PhaseErrorInterp:  eval.RelativePhaseError(predInterp, trueInterp),
		PhaseErrorExtrap:  eval.RelativePhaseError(predExtrap, trueExtrap),
		TrajErrInterp:     eval.TrajectoryError(predInterp, trueInterp),
		TrajErrExtrap:     eval.TrajectoryError(predExtrap, trueExtrap),
	}

	plotPath := filepath.Join(h.plotDir, fmt.Sprintf("%03d.png", epoch))
	figure := plot.EvalData{
		Times:      ts,
		PredExtrap: predExtrap, PredInterp: predInterp,
		TrueExtrap: trueExtrap, TrueInterp: trueInterp,
		Candidate: h.candidate, Reference: h.reference,
		Stiffness: h.stiffness, Mass: h.mass,
	}
	if err := plot.SaveEvalFigure(plotPath, figure); err != nil {
		return nil, err
	}
	report.PlotPath = plotPath

	row := eval.Row{
		WallTime: report.WallTime,
		Epoch:    epoch,

		EnergyDriftInterp: report.EnergyDriftInterp,
		EnergyDriftExtrap: report.EnergyDriftExtrap,
		PhaseErrorInterp:  report.PhaseErrorInterp,
		PhaseErrorExtrap:  report.PhaseErrorExtrap,
		TrajErrInterp:     report.TrajErrInterp,
		TrajErrExtrap:     report.TrajErrExtrap,
	}
	if err := h.results.Append(row); err != nil {
		return nil, err
	}
	report.ResultsPath = h.results.Path()

	return report, nil
}
