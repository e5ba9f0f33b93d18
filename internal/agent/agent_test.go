package agent

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"molgen/internal/net"
)

func testNetwork(t *testing.T) *net.PPORNDNet {
	t.Helper()
	n, err := net.NewPPORNDNet(net.Config{
		ObsFeatures:    4,
		NumActions:     3,
		HiddenWidth:    8,
		NumLayers:      1,
		Temperature:    1.0,
		RNDOutFeatures: 4,
	}, 42)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	return n
}

func randomObs(numEnvs, features int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	obs := mat.NewDense(numEnvs, features, nil)
	for r := 0; r < numEnvs; r++ {
		for c := 0; c < features; c++ {
			obs.Set(r, c, rng.NormFloat64())
		}
	}
	return obs
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, 2); err == nil {
		t.Fatal("expected nil network error")
	}
	if _, err := New(testNetwork(t), 0); err == nil {
		t.Fatal("expected num envs error")
	}
}

func TestSelectActionRange(t *testing.T) {
	a, err := New(testNetwork(t), 3)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	actions, err := a.SelectAction(randomObs(3, 4, 2), rng)
	if err != nil {
		t.Fatalf("select action: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("unexpected action count: got=%d want=3", len(actions))
	}
	for i, act := range actions {
		if act < 0 || act >= 3 {
			t.Fatalf("action out of range at %d: %d", i, act)
		}
	}

	if _, err := a.SelectAction(randomObs(5, 4, 2), rng); err == nil {
		t.Fatal("expected batch mismatch error")
	}
}

func TestObserveIntrinsicReward(t *testing.T) {
	a, err := New(testNetwork(t), 2)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}
	rng := rand.New(rand.NewSource(7))

	obs := randomObs(2, 4, 3)
	actions, err := a.SelectAction(obs, rng)
	if err != nil {
		t.Fatalf("select action: %v", err)
	}

	intrinsic, err := a.Observe(&Experience{
		Obs:        obs,
		Action:     actions,
		NextObs:    randomObs(2, 4, 4),
		Reward:     []float64{0, 0},
		Terminated: []bool{false, true},
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(intrinsic) != 2 {
		t.Fatalf("unexpected intrinsic count: got=%d want=2", len(intrinsic))
	}
	for i, r := range intrinsic {
		if r < 0 || math.IsNaN(r) {
			t.Fatalf("intrinsic reward invalid at %d: %f", i, r)
		}
	}
}

func TestObserveFieldMismatch(t *testing.T) {
	a, err := New(testNetwork(t), 2)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}

	if _, err := a.Observe(&Experience{
		Obs:        randomObs(2, 4, 1),
		Action:     []int{0},
		NextObs:    randomObs(2, 4, 2),
		Reward:     []float64{0, 0},
		Terminated: []bool{false, false},
	}); err == nil {
		t.Fatal("expected field length error")
	}
}

func TestRunningMeanStd(t *testing.T) {
	r := NewRunningMeanStd()
	if r.Std() != 1.0 {
		t.Fatalf("empty std should be 1, got=%f", r.Std())
	}

	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		r.Update(x)
	}
	if math.Abs(r.Mean()-5.0) > 1e-12 {
		t.Fatalf("unexpected mean: got=%f want=5", r.Mean())
	}
	if math.Abs(r.Std()-2.0) > 1e-12 {
		t.Fatalf("unexpected std: got=%f want=2", r.Std())
	}
	if math.Abs(r.Normalize(4.0)-2.0) > 1e-12 {
		t.Fatalf("unexpected normalized value: got=%f want=2", r.Normalize(4.0))
	}
}
