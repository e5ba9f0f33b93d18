package policy

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCategoricalProbsSumToOne(t *testing.T) {
	d, err := NewCategorical(mat.NewDense(2, 4, []float64{
		0.5, -1.0, 3.0, 0.0,
		-2.0, -2.0, -2.0, -2.0,
	}))
	if err != nil {
		t.Fatalf("dist: %v", err)
	}

	probs := d.Probs()
	for i := 0; i < d.Len(); i++ {
		var sum float64
		for a := 0; a < d.NumActions(); a++ {
			p := probs.At(i, a)
			if p < 0 || p > 1 {
				t.Fatalf("probability out of range at (%d,%d): %f", i, a, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("row %d does not sum to one: %f", i, sum)
		}
	}
}

func TestCategoricalSampleRange(t *testing.T) {
	d, err := NewCategorical(mat.NewDense(3, 5, []float64{
		1, 2, 3, 4, 5,
		5, 4, 3, 2, 1,
		0, 0, 0, 0, 0,
	}))
	if err != nil {
		t.Fatalf("dist: %v", err)
	}

	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 100; trial++ {
		for i, a := range d.Sample(rng) {
			if a < 0 || a >= d.NumActions() {
				t.Fatalf("sample out of range at %d: %d", i, a)
			}
		}
	}
}

func TestCategoricalSampleFollowsDominantLogit(t *testing.T) {
	// A very sharp distribution should almost always emit its argmax.
	d, err := NewCategorical(mat.NewDense(1, 3, []float64{0, 20, 0}))
	if err != nil {
		t.Fatalf("dist: %v", err)
	}

	rng := rand.New(rand.NewSource(5))
	hits := 0
	for trial := 0; trial < 200; trial++ {
		if d.Sample(rng)[0] == 1 {
			hits++
		}
	}
	if hits < 195 {
		t.Fatalf("dominant action undersampled: got=%d want>=195", hits)
	}
}

func TestCategoricalLogProb(t *testing.T) {
	d, err := NewCategorical(mat.NewDense(2, 2, []float64{0, 0, 1, 1}))
	if err != nil {
		t.Fatalf("dist: %v", err)
	}

	logProbs, err := d.LogProb([]int{0, 1})
	if err != nil {
		t.Fatalf("log prob: %v", err)
	}
	for i, lp := range logProbs {
		if math.Abs(lp-math.Log(0.5)) > 1e-6 {
			t.Fatalf("unexpected log prob at %d: got=%f want=%f", i, lp, math.Log(0.5))
		}
	}

	if _, err := d.LogProb([]int{0}); err == nil {
		t.Fatal("expected batch size mismatch error")
	}
	if _, err := d.LogProb([]int{0, 9}); err == nil {
		t.Fatal("expected action out of range error")
	}
}

func TestCategoricalEntropy(t *testing.T) {
	d, err := NewCategorical(mat.NewDense(2, 4, []float64{
		0, 0, 0, 0,
		0, 50, 0, 0,
	}))
	if err != nil {
		t.Fatalf("dist: %v", err)
	}

	entropy := d.Entropy()
	if math.Abs(entropy[0]-math.Log(4)) > 1e-9 {
		t.Fatalf("uniform entropy: got=%f want=%f", entropy[0], math.Log(4))
	}
	if entropy[1] > 1e-6 {
		t.Fatalf("peaked entropy should be near zero: %f", entropy[1])
	}
}
