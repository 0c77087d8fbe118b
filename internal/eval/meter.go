package eval

// DefaultMomentum is the decay used for training-loss smoothing.
const DefaultMomentum = 0.99

// RunningAverage smooths a scalar series with exponential decay. The
// first observation seeds the average directly.
type RunningAverage struct {
	momentum float64
	avg      float64
	val      float64
	seen     bool
}

func NewRunningAverage(momentum float64) *RunningAverage {
	return &RunningAverage{momentum: momentum}
}

func (r *RunningAverage) Observe(v float64) {
	if !r.seen {
		r.avg = v
		r.seen = true
	} else {
		r.avg = r.avg*r.momentum + v*(1-r.momentum)
	}
	r.val = v
}

func (r *RunningAverage) Value() float64 {
	return r.avg
}

func (r *RunningAverage) Last() float64 {
	return r.val
}

func (r *RunningAverage) Reset() {
	r.avg = 0
	r.val = 0
	r.seen = false
}
