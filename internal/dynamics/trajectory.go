package dynamics

import "fmt"

// Trajectory is an ordered sequence of states with their sample times.
type Trajectory struct {
	Times  []float64
	States []State
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

func (tr *Trajectory) At(i int) (float64, State) {
	return tr.Times[i], tr.States[i]
}

func (tr *Trajectory) Last() State {
	return tr.States[len(tr.States)-1]
}

// Component extracts one state coordinate across all samples.
func (tr *Trajectory) Component(j int) []float64 {
	out := make([]float64, len(tr.States))
	for i, s := range tr.States {
		out[i] = s[j]
	}
	return out
}

func (tr *Trajectory) Clone() *Trajectory {
	c := &Trajectory{
		Times:  make([]float64, len(tr.Times)),
		States: make([]State, len(tr.States)),
	}
	copy(c.Times, tr.Times)
	for i, s := range tr.States {
		c.States[i] = s.Clone()
	}
	return c
}

func (tr *Trajectory) Validate() error {
	if len(tr.Times) != len(tr.States) {
		return fmt.Errorf("%w: %d times vs %d states", ErrDimension, len(tr.Times), len(tr.States))
	}
	for i, s := range tr.States {
		if !s.IsValid() {
			return &SolveError{T: tr.Times[i], Step: i, Wrapped: ErrInvalidState}
		}
	}
	return nil
}
