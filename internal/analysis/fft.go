package analysis

import (
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform with a radix-2
// decimation. Inputs whose length is not a power of two are
// zero-padded, so the result may be longer than the input.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if p := nextPow2(n); p != n {
		padded := make([]float64, p)
		copy(padded, data)
		data = padded
		n = p
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

// PowerSpectrum returns the single-sided magnitude spectrum.
func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// DominantFrequency locates the strongest non-DC spectral peak and
// converts it to hertz. dt is the sample spacing in seconds. The
// resolution is one bin, 1/(n*dt) for the padded length n.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 2 || dt <= 0 {
		return 0
	}

	ps := PowerSpectrum(data)
	if len(ps) < 2 {
		return 0
	}

	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}

	n := 2 * len(ps)
	return float64(peak) / (float64(n) * dt)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
