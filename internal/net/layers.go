package net

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

type linear struct {
	weight *mat.Dense // (out, in)
	bias   []float64
	in     int
	out    int
}

func newLinear(in, out int, rng *rand.Rand) *linear {
	weight := mat.NewDense(out, in, nil)
	scale := math.Sqrt(2.0 / float64(in))
	for o := 0; o < out; o++ {
		for i := 0; i < in; i++ {
			weight.Set(o, i, (rng.Float64()-0.5)*scale)
		}
	}
	return &linear{weight: weight, bias: make([]float64, out), in: in, out: out}
}

func (l *linear) forward(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != l.in {
		return nil, fmt.Errorf("linear input width mismatch: got=%d want=%d", cols, l.in)
	}
	out := mat.NewDense(rows, l.out, nil)
	out.Mul(x, l.weight.T())
	for r := 0; r < rows; r++ {
		row := out.RawRowView(r)
		for o := 0; o < l.out; o++ {
			row[o] += l.bias[o]
		}
	}
	return out, nil
}

func (l *linear) forwardVec(x []float64) ([]float64, error) {
	if len(x) != l.in {
		return nil, fmt.Errorf("linear input width mismatch: got=%d want=%d", len(x), l.in)
	}
	out := make([]float64, l.out)
	vec := mat.NewVecDense(l.out, out)
	vec.MulVec(l.weight, mat.NewVecDense(l.in, x))
	for o := range out {
		out[o] += l.bias[o]
	}
	return out, nil
}

// mlp is a fully connected stack with ReLU between layers and a linear
// output layer.
type mlp struct {
	layers []*linear
}

func newMLP(sizes []int, rng *rand.Rand) *mlp {
	layers := make([]*linear, 0, len(sizes)-1)
	for i := 0; i+1 < len(sizes); i++ {
		layers = append(layers, newLinear(sizes[i], sizes[i+1], rng))
	}
	return &mlp{layers: layers}
}

func (m *mlp) forward(x *mat.Dense) (*mat.Dense, error) {
	out := x
	for i, layer := range m.layers {
		next, err := layer.forward(out)
		if err != nil {
			return nil, err
		}
		if i+1 < len(m.layers) {
			rows, cols := next.Dims()
			for r := 0; r < rows; r++ {
				row := next.RawRowView(r)
				for c := 0; c < cols; c++ {
					if row[c] < 0 {
						row[c] = 0
					}
				}
			}
		}
		out = next
	}
	return out, nil
}

// gruCell is a single GRU layer operating on one timestep.
type gruCell struct {
	update    *linear // z gate over [x;h]
	reset     *linear // r gate over [x;h]
	candidate *linear // h~ over [x; r*h]
	in        int
	width     int
}

func newGRUCell(in, width int, rng *rand.Rand) *gruCell {
	return &gruCell{
		update:    newLinear(in+width, width, rng),
		reset:     newLinear(in+width, width, rng),
		candidate: newLinear(in+width, width, rng),
		in:        in,
		width:     width,
	}
}

func (c *gruCell) step(x, h []float64) ([]float64, error) {
	xh := make([]float64, 0, c.in+c.width)
	xh = append(xh, x...)
	xh = append(xh, h...)

	z, err := c.update.forwardVec(xh)
	if err != nil {
		return nil, err
	}
	r, err := c.reset.forwardVec(xh)
	if err != nil {
		return nil, err
	}
	for i := range z {
		z[i] = sigmoid(z[i])
		r[i] = sigmoid(r[i])
	}

	xrh := make([]float64, 0, c.in+c.width)
	xrh = append(xrh, x...)
	for i := range h {
		xrh = append(xrh, r[i]*h[i])
	}
	cand, err := c.candidate.forwardVec(xrh)
	if err != nil {
		return nil, err
	}

	next := make([]float64, c.width)
	for i := range next {
		next[i] = (1-z[i])*h[i] + z[i]*math.Tanh(cand[i])
	}
	return next, nil
}

// gru is a stack of GRU layers unrolled over batch-first sequences.
type gru struct {
	cells []*gruCell
	in    int
	width int
}

func newGRU(in, width, layers int, rng *rand.Rand) *gru {
	cells := make([]*gruCell, 0, layers)
	for l := 0; l < layers; l++ {
		cellIn := in
		if l > 0 {
			cellIn = width
		}
		cells = append(cells, newGRUCell(cellIn, width, rng))
	}
	return &gru{cells: cells, in: in, width: width}
}

func (g *gru) layers() int { return len(g.cells) }

// forward unrolls the stack over a (batchSize*seqLen, in) input matrix in
// b-major row order and returns the top-layer outputs with the same layout
// plus the end-of-sequence hidden state. The input state is not mutated.
func (g *gru) forward(batchSize, seqLen int, x *mat.Dense, hidden *HiddenState) (*mat.Dense, *HiddenState, error) {
	rows, cols := x.Dims()
	if rows != batchSize*seqLen {
		return nil, nil, fmt.Errorf("sequence row count mismatch: got=%d want=%d", rows, batchSize*seqLen)
	}
	if cols != g.in {
		return nil, nil, fmt.Errorf("recurrent input width mismatch: got=%d want=%d", cols, g.in)
	}
	if err := hidden.check(g.layers(), batchSize, g.width); err != nil {
		return nil, nil, err
	}

	next := hidden.Clone()
	out := mat.NewDense(batchSize*seqLen, g.width, nil)
	for b := 0; b < batchSize; b++ {
		for t := 0; t < seqLen; t++ {
			input := x.RawRowView(b*seqLen + t)
			for l, cell := range g.cells {
				state, err := cell.step(input, next.Row(l, b))
				if err != nil {
					return nil, nil, err
				}
				copy(next.Row(l, b), state)
				input = state
			}
			out.SetRow(b*seqLen+t, input)
		}
	}
	return out, next, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
