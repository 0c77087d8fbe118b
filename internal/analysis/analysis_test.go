package analysis

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
	"github.com/TimFelixBeyer/NeuralODE/internal/integrators"
	"github.com/TimFelixBeyer/NeuralODE/internal/oscillator"
)

func TestFFTImpulse(t *testing.T) {
	got := FFT([]float64{1, 0, 0, 0})

	if len(got) != 4 {
		t.Fatalf("expected 4 bins, got %d", len(got))
	}
	for k, v := range got {
		if cmplx.Abs(v-1) > 1e-12 {
			t.Errorf("bin %d: expected 1+0i, got %v", k, v)
		}
	}
}

func TestFFTSingleTone(t *testing.T) {
	const n, k0 = 64, 5

	data := make([]float64, n)
	for i := range data {
		data[i] = math.Cos(2 * math.Pi * k0 * float64(i) / n)
	}

	got := FFT(data)
	for k := 0; k <= n/2; k++ {
		mag := cmplx.Abs(got[k])
		want := 0.0
		if k == k0 {
			want = n / 2
		}
		if math.Abs(mag-want) > 1e-9 {
			t.Errorf("bin %d: expected magnitude %f, got %f", k, want, mag)
		}
	}
}

func TestFFTPadsOddLengths(t *testing.T) {
	got := FFT([]float64{1, 0, 0})

	if len(got) != 4 {
		t.Fatalf("expected padding to 4 bins, got %d", len(got))
	}
	for k, v := range got {
		if cmplx.Abs(v-1) > 1e-12 {
			t.Errorf("bin %d: expected 1+0i, got %v", k, v)
		}
	}
}

func TestPowerSpectrumLength(t *testing.T) {
	ps := PowerSpectrum(make([]float64, 1000))
	if len(ps) != 512 {
		t.Errorf("expected 512 bins after padding, got %d", len(ps))
	}
}

func TestZeroCrossings(t *testing.T) {
	cases := []struct {
		name string
		xs   []float64
		want []int
	}{
		{"two crossings", []float64{1, 1, -1, -1, 1, 1}, []int{1, 3}},
		{"alternating", []float64{1, -1, 1}, []int{0, 1}},
		{"touches zero", []float64{1, 0, -1}, []int{0, 1}},
		{"no crossing", []float64{-1, -2, -3}, nil},
		{"empty", nil, nil},
	}

	for _, tc := range cases {
		got := ZeroCrossings(tc.xs)
		if len(got) != len(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
				break
			}
		}
	}
}

func TestDominantFrequencyBinCentered(t *testing.T) {
	// 8 cycles over 256 samples at dt=0.01 puts the tone exactly on
	// bin 8, so the estimate is exact.
	const (
		n    = 256
		dt   = 0.01
		freq = 8.0 / (n * dt)
	)

	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * freq * float64(i) * dt)
	}

	got := DominantFrequency(data, dt)
	if math.Abs(got-freq) > 1e-12 {
		t.Errorf("expected %f Hz, got %f Hz", freq, got)
	}
}

func TestDominantFrequencyOscillator(t *testing.T) {
	msd := oscillator.NewMassSpringDamper()

	tr, err := msd.Step(context.Background(), []float64{1, 0}, 10, 1001)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	const dt = 0.01
	got := DominantFrequency(tr.Component(0), dt)
	want := msd.Frequency()

	// Peak picking is only accurate to one bin of the padded signal.
	bin := 1.0 / (1024 * dt)
	if math.Abs(got-want) > bin {
		t.Errorf("expected %f Hz within %f, got %f Hz", want, bin, got)
	}
}

func TestDominantFrequencyDegenerate(t *testing.T) {
	if got := DominantFrequency(nil, 0.01); got != 0 {
		t.Errorf("expected 0 for empty signal, got %f", got)
	}
	if got := DominantFrequency([]float64{1, 2, 3}, 0); got != 0 {
		t.Errorf("expected 0 for zero dt, got %f", got)
	}
}

func TestLargestLyapunovDamped(t *testing.T) {
	msd := oscillator.NewMassSpringDamper()
	msd.Damping = 0.5

	got := LargestLyapunov(msd, integrators.NewRK4(), dynamics.State{1, 0}, 0.01, 40, 1e-8)

	// The damped envelope decays at -d/(2m).
	want := -0.25
	if math.Abs(got-want) > 0.03 {
		t.Errorf("expected exponent near %f, got %f", want, got)
	}
}

func TestLargestLyapunovConservative(t *testing.T) {
	msd := oscillator.NewMassSpringDamper()

	got := LargestLyapunov(msd, integrators.NewRK4(), dynamics.State{1, 0}, 0.01, 40, 1e-8)

	if math.Abs(got) > 1e-3 {
		t.Errorf("expected exponent near zero, got %f", got)
	}
}

func TestLargestLyapunovDegenerate(t *testing.T) {
	msd := oscillator.NewMassSpringDamper()
	rk4 := integrators.NewRK4()

	if got := LargestLyapunov(msd, rk4, nil, 0.01, 1, 1e-8); !math.IsNaN(got) {
		t.Errorf("expected NaN for empty state, got %f", got)
	}
	if got := LargestLyapunov(msd, rk4, dynamics.State{1, 0}, 0.01, 1, 0); !math.IsNaN(got) {
		t.Errorf("expected NaN for zero eps, got %f", got)
	}
}
