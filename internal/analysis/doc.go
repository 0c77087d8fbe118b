// Package analysis provides signal and stability analysis for
// simulated trajectories.
//
//   - [FFT] and [PowerSpectrum]: radix-2 transform with zero padding
//   - [DominantFrequency]: peak picking in physical units
//   - [ZeroCrossings]: sign-change indices of a sampled signal
//   - [LargestLyapunov]: divergence-based chaos indicator
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lam := analysis.LargestLyapunov(f, st, y0, dt, duration, 1e-8)
//	if lam > 0 {
//	    // trajectories diverge exponentially
//	}
package analysis
