package policy

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Categorical is a categorical distribution over discrete actions,
// parameterized by one logit row per batch element. It is immutable once
// constructed.
type Categorical struct {
	logits *mat.Dense
}

func NewCategorical(logits *mat.Dense) (*Categorical, error) {
	if logits == nil {
		return nil, fmt.Errorf("logits are required")
	}
	_, cols := logits.Dims()
	if cols == 0 {
		return nil, fmt.Errorf("logits must have at least one action column")
	}
	return &Categorical{logits: logits}, nil
}

// Len returns the number of batch elements.
func (d *Categorical) Len() int {
	rows, _ := d.logits.Dims()
	return rows
}

// NumActions returns the number of discrete actions.
func (d *Categorical) NumActions() int {
	_, cols := d.logits.Dims()
	return cols
}

// Logits returns the raw logit row for batch element i.
func (d *Categorical) Logits(i int) []float64 {
	return d.logits.RawRowView(i)
}

// Probs returns the per-element probability rows.
func (d *Categorical) Probs() *mat.Dense {
	rows, cols := d.logits.Dims()
	probs := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		probs.SetRow(i, softmax(d.logits.RawRowView(i)))
	}
	return probs
}

// Sample draws one action per batch element.
func (d *Categorical) Sample(rng *rand.Rand) []int {
	rows, _ := d.logits.Dims()
	actions := make([]int, rows)
	for i := 0; i < rows; i++ {
		actions[i] = sampleCategorical(softmax(d.logits.RawRowView(i)), rng)
	}
	return actions
}

// LogProb returns log pi(action_i) per batch element.
func (d *Categorical) LogProb(actions []int) ([]float64, error) {
	rows, cols := d.logits.Dims()
	if len(actions) != rows {
		return nil, fmt.Errorf("action batch size mismatch: got=%d want=%d", len(actions), rows)
	}
	out := make([]float64, rows)
	for i, a := range actions {
		if a < 0 || a >= cols {
			return nil, fmt.Errorf("action out of range: got=%d want<%d", a, cols)
		}
		probs := softmax(d.logits.RawRowView(i))
		out[i] = math.Log(probs[a] + 1e-12)
	}
	return out, nil
}

// Entropy returns the per-element entropy in nats.
func (d *Categorical) Entropy() []float64 {
	rows, _ := d.logits.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		probs := softmax(d.logits.RawRowView(i))
		h := 0.0
		for _, p := range probs {
			if p > 0 {
				h -= p * math.Log(p)
			}
		}
		out[i] = h
	}
	return out
}

// Argmax returns the highest-logit action per batch element.
func (d *Categorical) Argmax() []int {
	rows, cols := d.logits.Dims()
	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		row := d.logits.RawRowView(i)
		best := 0
		for a := 1; a < cols; a++ {
			if row[a] > row[best] {
				best = a
			}
		}
		out[i] = best
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	values := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		values[i] = math.Exp(v - maxLogit)
		sum += values[i]
	}
	for i := range values {
		values[i] /= sum
	}
	return values
}

func sampleCategorical(probs []float64, rng *rand.Rand) int {
	threshold := rng.Float64()
	var cumulativeProb float64
	for i, prob := range probs {
		cumulativeProb += prob
		if threshold <= cumulativeProb {
			return i
		}
	}
	return len(probs) - 1
}
