package eval

import (
	"math"

	"github.com/TimFelixBeyer/NeuralODE/internal/analysis"
	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

// TotalEnergy evaluates 0.5*k*x^2 + 0.5*m*v^2 for a planar
// (position, velocity) state.
func TotalEnergy(y dynamics.State, stiffness, mass float64) float64 {
	if len(y) < 2 {
		return 0
	}
	return 0.5*stiffness*y[0]*y[0] + 0.5*mass*y[1]*y[1]
}

// RelativeEnergyDrift compares the stored energy of the predicted and
// reference trajectories at the final step. The result is signed:
// positive means the prediction gained energy.
func RelativeEnergyDrift(pred, ref *dynamics.Trajectory, stiffness, mass float64) float64 {
	if pred.Len() == 0 || ref.Len() == 0 {
		return math.NaN()
	}
	ePred := TotalEnergy(pred.Last(), stiffness, mass)
	eRef := TotalEnergy(ref.Last(), stiffness, mass)
	return (ePred - eRef) / eRef
}

// RelativePhaseError compares the zero-crossing indices of the position
// component. Crossing lists are truncated to the shorter one and each
// pair contributes 1 - ref/pred, so a prediction that oscillates too
// fast drifts negative.
func RelativePhaseError(pred, ref *dynamics.Trajectory) float64 {
	refCross := analysis.ZeroCrossings(ref.Component(0))
	predCross := analysis.ZeroCrossings(pred.Component(0))

	n := len(refCross)
	if len(predCross) < n {
		n = len(predCross)
	}
	if n == 0 {
		return math.NaN()
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		r := float64(refCross[i])
		p := float64(predCross[i])
		sum += (1/r - 1/p) * r
	}
	return sum / float64(n)
}

// TrajectoryError is the mean absolute difference over every component
// of every step. Both trajectories must share the sampling grid.
func TrajectoryError(pred, ref *dynamics.Trajectory) float64 {
	n := pred.Len()
	if ref.Len() < n {
		n = ref.Len()
	}
	if n == 0 {
		return math.NaN()
	}

	sum, count := 0.0, 0
	for i := 0; i < n; i++ {
		p, r := pred.States[i], ref.States[i]
		for k := range r {
			sum += math.Abs(p[k] - r[k])
			count++
		}
	}
	return sum / float64(count)
}
