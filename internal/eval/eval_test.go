package eval

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

func traj(states ...dynamics.State) *dynamics.Trajectory {
	ts := make([]float64, len(states))
	for i := range ts {
		ts[i] = float64(i)
	}
	return &dynamics.Trajectory{Times: ts, States: states}
}

func TestTotalEnergy(t *testing.T) {
	cases := []struct {
		name            string
		y               dynamics.State
		stiffness, mass float64
		want            float64
	}{
		{"unit state", dynamics.State{1, 1}, 1, 1, 1},
		{"stiff spring", dynamics.State{2, 0}, 3, 1, 6},
		{"heavy mass", dynamics.State{0, 2}, 1, 2, 4},
		{"short state", dynamics.State{1}, 1, 1, 0},
	}

	for _, tc := range cases {
		if got := TotalEnergy(tc.y, tc.stiffness, tc.mass); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s: expected %f, got %f", tc.name, tc.want, got)
		}
	}
}

func TestRelativeEnergyDrift(t *testing.T) {
	ref := traj(dynamics.State{1, 0}, dynamics.State{0.5, 0.5}, dynamics.State{1, 0})

	if got := RelativeEnergyDrift(ref, ref, 1, 1); got != 0 {
		t.Errorf("expected zero drift against itself, got %g", got)
	}

	pred := traj(dynamics.State{1, 0}, dynamics.State{0.5, 0.5}, dynamics.State{2, 0})
	if got := RelativeEnergyDrift(pred, ref, 1, 1); math.Abs(got-3) > 1e-12 {
		t.Errorf("expected drift 3, got %f", got)
	}
}

func TestRelativePhaseError(t *testing.T) {
	mk := func(xs ...float64) *dynamics.Trajectory {
		states := make([]dynamics.State, len(xs))
		for i, x := range xs {
			states[i] = dynamics.State{x, 0}
		}
		return traj(states...)
	}

	ref := mk(1, 1, 1, -1, -1, 1)
	if got := RelativePhaseError(ref, ref); got != 0 {
		t.Errorf("expected zero phase error against itself, got %g", got)
	}

	// ref crosses at indices {2,4}, pred at {1,3}:
	// mean((1/2-1/1)*2, (1/4-1/3)*4) = mean(-1, -1/3) = -2/3.
	pred := mk(1, 1, -1, -1, 1, 1)
	want := -2.0 / 3.0
	if got := RelativePhaseError(pred, ref); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestRelativePhaseErrorNoCrossings(t *testing.T) {
	flat := traj(dynamics.State{1, 0}, dynamics.State{2, 0})
	osc := traj(dynamics.State{1, 0}, dynamics.State{-1, 0})

	if got := RelativePhaseError(osc, flat); !math.IsNaN(got) {
		t.Errorf("expected NaN without reference crossings, got %f", got)
	}
}

func TestTrajectoryError(t *testing.T) {
	pred := traj(dynamics.State{1, 2}, dynamics.State{3, 4})
	ref := traj(dynamics.State{0, 2}, dynamics.State{3, 2})

	if got := TrajectoryError(pred, pred); got != 0 {
		t.Errorf("expected zero error against itself, got %g", got)
	}
	if got := TrajectoryError(pred, ref); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("expected 0.75, got %f", got)
	}
}

func TestRunningAverage(t *testing.T) {
	r := NewRunningAverage(0.5)

	r.Observe(2)
	if r.Value() != 2 {
		t.Errorf("expected first observation to seed average, got %f", r.Value())
	}

	r.Observe(4)
	if math.Abs(r.Value()-3) > 1e-12 {
		t.Errorf("expected 3, got %f", r.Value())
	}
	if r.Last() != 4 {
		t.Errorf("expected last 4, got %f", r.Last())
	}

	r.Observe(0)
	if math.Abs(r.Value()-1.5) > 1e-12 {
		t.Errorf("expected 1.5, got %f", r.Value())
	}

	r.Reset()
	if r.Value() != 0 {
		t.Errorf("expected zero after reset, got %f", r.Value())
	}
	r.Observe(7)
	if r.Value() != 7 {
		t.Errorf("expected reseed after reset, got %f", r.Value())
	}
}

func TestRunningAverageDefaultMomentum(t *testing.T) {
	r := NewRunningAverage(DefaultMomentum)
	r.Observe(1)
	r.Observe(0)
	if math.Abs(r.Value()-0.99) > 1e-12 {
		t.Errorf("expected 0.99, got %f", r.Value())
	}
}

func TestResultsWriterAppend(t *testing.T) {
	dir := t.TempDir()
	w := NewResultsWriter(dir, "20200102-030405", 0.01, 51, 32)

	if base := filepath.Base(w.Path()); base != "20200102-030405results0.015132.csv" {
		t.Errorf("unexpected file name %s", base)
	}

	row := Row{
		WallTime: 1.5, Epoch: 1,
		EnergyDriftInterp: 0.25, EnergyDriftExtrap: -0.5,
		PhaseErrorInterp: 0.125, PhaseErrorExtrap: -0.25,
		TrajErrInterp: 0.1, TrajErrExtrap: 0.2,
	}
	if err := w.Append(row); err != nil {
		t.Fatalf("append: %v", err)
	}
	row.WallTime, row.Epoch = 2.5, 2
	if err := w.Append(row); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(w.Path())
	if err != nil {
		t.Fatalf("read results: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}

	wantHeader := "wall_time,epoch,energy_drift_interp,energy_drift_extrap,phase_error_interp,phase_error_extrap,traj_err_interp,traj_err_extrap"
	if lines[0] != wantHeader {
		t.Errorf("expected header %q, got %q", wantHeader, lines[0])
	}
	if lines[1] != "1.5,1,0.25,-0.5,0.125,-0.25,0.1,0.2" {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2.5,2,") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}

func TestRunStamp(t *testing.T) {
	got := RunStamp(time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC))
	if got != "20200304-050607" {
		t.Errorf("expected 20200304-050607, got %s", got)
	}
}
