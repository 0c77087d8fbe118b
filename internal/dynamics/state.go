package dynamics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return floats.Norm(s, 2)
}

func (s State) Add(other State) State {
	out := s.Clone()
	floats.Add(out, other)
	return out
}

func (s State) Sub(other State) State {
	out := s.Clone()
	floats.Sub(out, other)
	return out
}

func (s State) Scale(factor float64) State {
	out := s.Clone()
	floats.Scale(factor, out)
	return out
}

// AddScaled accumulates factor*other into s in place and returns s.
func (s State) AddScaled(factor float64, other State) State {
	floats.AddScaled(s, factor, other)
	return s
}

func (s State) Dot(other State) float64 {
	return floats.Dot(s, other)
}
