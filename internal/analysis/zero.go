package analysis

// ZeroCrossings returns the indices i at which the sign of the signal
// changes between sample i and i+1. A sample that is exactly zero has
// its own sign, so touching zero counts as two crossings.
func ZeroCrossings(xs []float64) []int {
	var idx []int
	for i := 0; i+1 < len(xs); i++ {
		if sign(xs[i+1]) != sign(xs[i]) {
			idx = append(idx, i)
		}
	}
	return idx
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
