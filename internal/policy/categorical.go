package policy

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// CategoricalPolicy maps a feature batch to a categorical action
// distribution through a temperature-scaled linear transform. Temperature
// below 1 sharpens the distribution, above 1 flattens it; ranking of
// actions is preserved for any positive temperature.
type CategoricalPolicy struct {
	weight      *mat.Dense // (numActions, inFeatures)
	bias        []float64  // nil when the layer has no bias term
	inFeatures  int
	numActions  int
	temperature float64
}

func NewCategoricalPolicy(inFeatures, numActions int, withBias bool, temperature float64, rng *rand.Rand) (*CategoricalPolicy, error) {
	if inFeatures <= 0 {
		return nil, fmt.Errorf("in features must be > 0, got=%d", inFeatures)
	}
	if numActions <= 0 {
		return nil, fmt.Errorf("num actions must be > 0, got=%d", numActions)
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) || temperature <= 0 {
		return nil, fmt.Errorf("temperature must be a positive finite value, got=%v", temperature)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	weight := mat.NewDense(numActions, inFeatures, nil)
	scale := math.Sqrt(2.0 / float64(inFeatures))
	for a := 0; a < numActions; a++ {
		for i := 0; i < inFeatures; i++ {
			weight.Set(a, i, (rng.Float64()-0.5)*scale)
		}
	}
	var bias []float64
	if withBias {
		bias = make([]float64, numActions)
	}

	return &CategoricalPolicy{
		weight:      weight,
		bias:        bias,
		inFeatures:  inFeatures,
		numActions:  numActions,
		temperature: temperature,
	}, nil
}

// Forward computes logits = (x W^T + b) / temperature for an input batch of
// shape (n, inFeatures) and returns the categorical distribution over
// actions initialized from those logits.
func (p *CategoricalPolicy) Forward(x *mat.Dense) (*Categorical, error) {
	if x == nil {
		return nil, fmt.Errorf("input batch is required")
	}
	rows, cols := x.Dims()
	if cols != p.inFeatures {
		return nil, fmt.Errorf("input width mismatch: got=%d want=%d", cols, p.inFeatures)
	}

	logits := mat.NewDense(rows, p.numActions, nil)
	logits.Mul(x, p.weight.T())
	for i := 0; i < rows; i++ {
		row := logits.RawRowView(i)
		for a := 0; a < p.numActions; a++ {
			if p.bias != nil {
				row[a] += p.bias[a]
			}
			row[a] /= p.temperature
		}
	}
	return NewCategorical(logits)
}

// NumActions returns the action count of the head.
func (p *CategoricalPolicy) NumActions() int { return p.numActions }

// InFeatures returns the expected input feature width.
func (p *CategoricalPolicy) InFeatures() int { return p.inFeatures }
