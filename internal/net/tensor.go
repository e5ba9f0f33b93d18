package net

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"molgen/internal/policy"
)

// SeqBatch is a batch-first observation sequence: seqBatchSize sequences of
// seqLen observation rows each, laid out row-major on a dense matrix with
// row index b*seqLen + t.
type SeqBatch struct {
	batchSize int
	seqLen    int
	features  int
	data      *mat.Dense
}

func NewSeqBatch(batchSize, seqLen, features int) (*SeqBatch, error) {
	if batchSize <= 0 || seqLen <= 0 || features <= 0 {
		return nil, fmt.Errorf("sequence batch dims must be > 0, got=(%d,%d,%d)", batchSize, seqLen, features)
	}
	return &SeqBatch{
		batchSize: batchSize,
		seqLen:    seqLen,
		features:  features,
		data:      mat.NewDense(batchSize*seqLen, features, nil),
	}, nil
}

// SeqBatchFromRows builds a sequence batch from batchSize*seqLen rows in
// b-major order. Every row must have the same width.
func SeqBatchFromRows(batchSize, seqLen int, rows [][]float64) (*SeqBatch, error) {
	if len(rows) != batchSize*seqLen {
		return nil, fmt.Errorf("row count mismatch: got=%d want=%d", len(rows), batchSize*seqLen)
	}
	if len(rows[0]) == 0 {
		return nil, fmt.Errorf("observation rows must be non-empty")
	}
	s, err := NewSeqBatch(batchSize, seqLen, len(rows[0]))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != s.features {
			return nil, fmt.Errorf("row %d width mismatch: got=%d want=%d", i, len(row), s.features)
		}
		s.data.SetRow(i, row)
	}
	return s, nil
}

func (s *SeqBatch) BatchSize() int { return s.batchSize }
func (s *SeqBatch) SeqLen() int    { return s.seqLen }
func (s *SeqBatch) Features() int  { return s.features }

// Row returns the observation vector at (b, t) without copying.
func (s *SeqBatch) Row(b, t int) []float64 {
	return s.data.RawRowView(b*s.seqLen + t)
}

// Data exposes the (batchSize*seqLen, features) backing matrix.
func (s *SeqBatch) Data() *mat.Dense { return s.data }

// HiddenState is the opaque recurrent state with shape
// (D x numLayers, seqBatchSize, H), D fixed at 1 for the unidirectional
// stacks in this package. The layer-l state for batch element b lives at
// matrix row l*seqBatchSize + b.
type HiddenState struct {
	layers    int
	batchSize int
	width     int
	data      *mat.Dense
}

func NewHiddenState(layers, batchSize, width int) (*HiddenState, error) {
	if layers <= 0 || batchSize <= 0 || width <= 0 {
		return nil, fmt.Errorf("hidden state dims must be > 0, got=(%d,%d,%d)", layers, batchSize, width)
	}
	return &HiddenState{
		layers:    layers,
		batchSize: batchSize,
		width:     width,
		data:      mat.NewDense(layers*batchSize, width, nil),
	}, nil
}

func (h *HiddenState) Layers() int    { return h.layers }
func (h *HiddenState) BatchSize() int { return h.batchSize }
func (h *HiddenState) Width() int     { return h.width }

// Row returns the layer-l state vector for batch element b without copying.
func (h *HiddenState) Row(layer, b int) []float64 {
	return h.data.RawRowView(layer*h.batchSize + b)
}

// Clone deep-copies the state so consecutive sequences never alias.
func (h *HiddenState) Clone() *HiddenState {
	clone, _ := NewHiddenState(h.layers, h.batchSize, h.width)
	clone.data.Copy(h.data)
	return clone
}

// ResetBatch zeroes every layer's state for batch element b. Used at
// episode boundaries so no state leaks across episodes.
func (h *HiddenState) ResetBatch(b int) {
	for l := 0; l < h.layers; l++ {
		row := h.Row(l, b)
		for i := range row {
			row[i] = 0
		}
	}
}

// Flatten returns the (layers*width) concatenated state for batch element
// b, the layout ForwardRND consumes.
func (h *HiddenState) Flatten(b int) []float64 {
	out := make([]float64, 0, h.layers*h.width)
	for l := 0; l < h.layers; l++ {
		out = append(out, h.Row(l, b)...)
	}
	return out
}

// FlattenAll returns a (batchSize, layers*width) matrix of flattened
// states.
func (h *HiddenState) FlattenAll() *mat.Dense {
	out := mat.NewDense(h.batchSize, h.layers*h.width, nil)
	for b := 0; b < h.batchSize; b++ {
		out.SetRow(b, h.Flatten(b))
	}
	return out
}

func (h *HiddenState) check(layers, batchSize, width int) error {
	if h.layers != layers || h.batchSize != batchSize || h.width != width {
		return fmt.Errorf("hidden state shape mismatch: got=(%d,%d,%d) want=(%d,%d,%d)",
			h.layers, h.batchSize, h.width, layers, batchSize, width)
	}
	return nil
}

// ValueSeq holds per-timestep scalar value estimates with shape
// (seqBatchSize, seqLen, 1).
type ValueSeq struct {
	batchSize int
	seqLen    int
	values    []float64
}

func newValueSeq(batchSize, seqLen int) *ValueSeq {
	return &ValueSeq{batchSize: batchSize, seqLen: seqLen, values: make([]float64, batchSize*seqLen)}
}

func (v *ValueSeq) BatchSize() int { return v.batchSize }
func (v *ValueSeq) SeqLen() int    { return v.seqLen }

// At returns the value estimate for (b, t).
func (v *ValueSeq) At(b, t int) float64 {
	return v.values[b*v.seqLen+t]
}

func (v *ValueSeq) set(b, t int, value float64) {
	v.values[b*v.seqLen+t] = value
}

// DistSeq is a policy distribution sequence with batch shape
// (seqBatchSize, seqLen); distribution row index = b*seqLen + t.
type DistSeq struct {
	batchSize int
	seqLen    int
	dist      *policy.Categorical
}

func newDistSeq(batchSize, seqLen int, dist *policy.Categorical) (*DistSeq, error) {
	if dist.Len() != batchSize*seqLen {
		return nil, fmt.Errorf("distribution length mismatch: got=%d want=%d", dist.Len(), batchSize*seqLen)
	}
	return &DistSeq{batchSize: batchSize, seqLen: seqLen, dist: dist}, nil
}

func (d *DistSeq) BatchSize() int { return d.batchSize }
func (d *DistSeq) SeqLen() int    { return d.seqLen }

// Dist exposes the flattened categorical distribution.
func (d *DistSeq) Dist() *policy.Categorical { return d.dist }

// At returns the single-timestep distribution row index for (b, t).
func (d *DistSeq) At(b, t int) int { return b*d.seqLen + t }
