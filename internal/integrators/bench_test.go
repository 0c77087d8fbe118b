package integrators

import (
	"testing"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

type benchField struct{}

func (benchField) Dim() int { return 2 }
func (benchField) Eval(t float64, y dynamics.State) dynamics.State {
	return dynamics.State{y[1], -y[0]}
}

func BenchmarkEuler(b *testing.B) {
	integ := NewEuler()
	f := benchField{}
	y := dynamics.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y = integ.Step(f, 0, y, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	f := benchField{}
	y := dynamics.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y = integ.Step(f, 0, y, 0.01)
	}
}

func BenchmarkDopri5(b *testing.B) {
	integ := NewDopri5()
	f := benchField{}
	y := dynamics.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		y, _, _ = integ.StepAdaptive(f, 0, y, 0.01, 1e-6, 1e-12)
	}
}
