package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/TimFelixBeyer/NeuralODE/internal/dynamics"
)

// MLP is a fully connected vector field with tanh hidden activations and
// a linear output layer. All weights live in one flat backing slice;
// per-layer matrices are views into it, so an optimizer can step the
// flat vector and every layer observes the update without copying. The
// flat layout, and therefore ParamSizes, orders tensors W1, b1, W2, b2
// and so on.
//
// The field is autonomous: the time gradient of EvalVJP is exactly zero.
type MLP struct {
	sizes   []int
	params  []float64
	weights []*mat.Dense // weights[l] has shape (sizes[l], sizes[l+1])
	biases  [][]float64
}

// NewMLP builds a network with the given layer sizes, e.g. [2, 50, 2].
// Input and output widths must match so the network is usable as an ODE
// right-hand side. Weights get seeded Glorot-uniform values, biases zero.
func NewMLP(sizes []int, seed int64) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("neural: need at least input and output layers, got %v", sizes)
	}
	for _, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("neural: invalid layer size in %v", sizes)
		}
	}
	if sizes[0] != sizes[len(sizes)-1] {
		return nil, fmt.Errorf("neural: input width %d does not match output width %d", sizes[0], sizes[len(sizes)-1])
	}

	total := 0
	for l := 0; l+1 < len(sizes); l++ {
		total += sizes[l]*sizes[l+1] + sizes[l+1]
	}

	m := &MLP{
		sizes:  append([]int(nil), sizes...),
		params: make([]float64, total),
	}
	m.buildViews()

	rng := rand.New(rand.NewSource(seed))
	off := 0
	for l := 0; l+1 < len(sizes); l++ {
		in, out := sizes[l], sizes[l+1]
		limit := math.Sqrt(6.0 / float64(in+out))
		for i := 0; i < in*out; i++ {
			m.params[off+i] = (rng.Float64()*2 - 1) * limit
		}
		off += in*out + out
	}
	return m, nil
}

func (m *MLP) buildViews() {
	m.weights = nil
	m.biases = nil
	off := 0
	for l := 0; l+1 < len(m.sizes); l++ {
		in, out := m.sizes[l], m.sizes[l+1]
		m.weights = append(m.weights, mat.NewDense(in, out, m.params[off:off+in*out]))
		off += in * out
		m.biases = append(m.biases, m.params[off:off+out])
		off += out
	}
}

func (m *MLP) Dim() int { return m.sizes[0] }

func (m *MLP) Sizes() []int { return append([]int(nil), m.sizes...) }

// Params returns the live flat parameter vector. Mutations are observed
// by all layers immediately.
func (m *MLP) Params() []float64 { return m.params }

func (m *MLP) NumParams() int { return len(m.params) }

func (m *MLP) SetParams(p []float64) error {
	if len(p) != len(m.params) {
		return fmt.Errorf("%w: %d params, want %d", dynamics.ErrDimension, len(p), len(m.params))
	}
	copy(m.params, p)
	return nil
}

func (m *MLP) ParamSizes() []int {
	sizes := make([]int, 0, 2*len(m.weights))
	for l := 0; l+1 < len(m.sizes); l++ {
		sizes = append(sizes, m.sizes[l]*m.sizes[l+1], m.sizes[l+1])
	}
	return sizes
}

// Eval runs a single state through the batch path as a batch of one.
func (m *MLP) Eval(t float64, y dynamics.State) dynamics.State {
	acts := m.forward(m.stack([]dynamics.State{y}))
	return cloneRow(acts[len(acts)-1], 0)
}

func (m *MLP) EvalBatch(t float64, ys []dynamics.State) []dynamics.State {
	if len(ys) == 0 {
		return nil
	}
	acts := m.forward(m.stack(ys))
	out := acts[len(acts)-1]
	res := make([]dynamics.State, len(ys))
	for i := range ys {
		res[i] = cloneRow(out, i)
	}
	return res
}

func (m *MLP) EvalVJP(t float64, y, w dynamics.State) (dynamics.State, float64, dynamics.State, []float64) {
	acts := m.forward(m.stack([]dynamics.State{y}))
	deriv := cloneRow(acts[len(acts)-1], 0)

	pGrad, dX := m.backward(acts, m.stack([]dynamics.State{w}))
	return deriv, 0, cloneRow(dX, 0), pGrad
}

// Gradient computes the flat parameter gradient for a whole batch given
// the upstream gradient of each output row, plus the input gradients.
func (m *MLP) Gradient(xs, upstream []dynamics.State) ([]float64, []dynamics.State) {
	acts := m.forward(m.stack(xs))
	pGrad, dX := m.backward(acts, m.stack(upstream))

	inGrads := make([]dynamics.State, len(xs))
	for i := range xs {
		inGrads[i] = cloneRow(dX, i)
	}
	return pGrad, inGrads
}

func (m *MLP) stack(ys []dynamics.State) *mat.Dense {
	X := mat.NewDense(len(ys), len(ys[0]), nil)
	for i, y := range ys {
		X.SetRow(i, y)
	}
	return X
}

// forward returns every layer's post-activation batch, acts[0] being the
// input itself.
func (m *MLP) forward(X *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, len(m.weights)+1)
	acts[0] = X
	for l, W := range m.weights {
		var z mat.Dense
		z.Mul(acts[l], W)

		raw := z.RawMatrix()
		hidden := l < len(m.weights)-1
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			for j := range row {
				row[j] += m.biases[l][j]
				if hidden {
					row[j] = math.Tanh(row[j])
				}
			}
		}
		acts[l+1] = &z
	}
	return acts
}

// backward runs reverse mode through stored activations. G holds the
// upstream gradient in the output's shape. The returned flat gradient
// mirrors the parameter layout; the Dense is the input-batch gradient.
func (m *MLP) backward(acts []*mat.Dense, G *mat.Dense) ([]float64, *mat.Dense) {
	flat := make([]float64, len(m.params))
	off := len(m.params)
	dZ := G

	for l := len(m.weights) - 1; l >= 0; l-- {
		in, out := m.sizes[l], m.sizes[l+1]

		off -= out
		bGrad := flat[off : off+out]
		raw := dZ.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
			for j, v := range row {
				bGrad[j] += v
			}
		}

		off -= in * out
		dW := mat.NewDense(in, out, flat[off:off+in*out])
		dW.Mul(acts[l].T(), dZ)

		dA := &mat.Dense{}
		dA.Mul(dZ, m.weights[l].T())
		if l > 0 {
			// acts[l] is tanh output; d tanh = 1 - a^2
			rawA := dA.RawMatrix()
			act := acts[l].RawMatrix()
			for i := 0; i < rawA.Rows; i++ {
				rowG := rawA.Data[i*rawA.Stride : i*rawA.Stride+rawA.Cols]
				rowA := act.Data[i*act.Stride : i*act.Stride+act.Cols]
				for j := range rowG {
					rowG[j] *= 1 - rowA[j]*rowA[j]
				}
			}
		}
		dZ = dA
	}
	return flat, dZ
}

func cloneRow(d *mat.Dense, i int) dynamics.State {
	return dynamics.State(append([]float64(nil), d.RawRowView(i)...))
}
