package net

import (
	"math"
	"math/rand"
	"testing"
)

func testConfig() Config {
	return Config{
		ObsFeatures:    6,
		NumActions:     5,
		HiddenWidth:    8,
		NumLayers:      2,
		Temperature:    1.0,
		RNDOutFeatures: 4,
	}
}

func randomSeqBatch(t *testing.T, batchSize, seqLen, features int, seed int64) *SeqBatch {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, batchSize*seqLen)
	for i := range rows {
		row := make([]float64, features)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		rows[i] = row
	}
	s, err := SeqBatchFromRows(batchSize, seqLen, rows)
	if err != nil {
		t.Fatalf("seq batch: %v", err)
	}
	return s
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero obs features", func(c *Config) { c.ObsFeatures = 0 }},
		{"negative actions", func(c *Config) { c.NumActions = -1 }},
		{"negative hidden width", func(c *Config) { c.HiddenWidth = -8 }},
		{"negative layers", func(c *Config) { c.NumLayers = -2 }},
		{"negative temperature", func(c *Config) { c.Temperature = -0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewPPORNDNet(cfg, 1); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestEncoderNetForwardShapes(t *testing.T) {
	cfg := testConfig()
	n, err := NewEncoderNet(cfg, 7)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	const batchSize, seqLen = 3, 4
	hidden, err := n.InitialHiddenState(batchSize)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, batchSize, seqLen, cfg.ObsFeatures, 1)

	dist, next, err := n.Forward(obs, hidden)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if dist.BatchSize() != batchSize || dist.SeqLen() != seqLen {
		t.Fatalf("unexpected dist shape: (%d,%d)", dist.BatchSize(), dist.SeqLen())
	}
	if dist.Dist().NumActions() != cfg.NumActions {
		t.Fatalf("unexpected action count: got=%d want=%d", dist.Dist().NumActions(), cfg.NumActions)
	}
	if next.Layers() != cfg.NumLayers || next.BatchSize() != batchSize || next.Width() != cfg.HiddenWidth {
		t.Fatalf("unexpected next state shape: (%d,%d,%d)", next.Layers(), next.BatchSize(), next.Width())
	}
}

func TestPPONetForwardShapes(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPONet(cfg, 7)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	const batchSize, seqLen = 2, 5
	hidden, err := n.InitialHiddenState(batchSize)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, batchSize, seqLen, cfg.ObsFeatures, 2)

	dist, values, next, err := n.Forward(obs, hidden)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if dist.BatchSize() != batchSize || dist.SeqLen() != seqLen {
		t.Fatalf("unexpected dist shape: (%d,%d)", dist.BatchSize(), dist.SeqLen())
	}
	if values.BatchSize() != batchSize || values.SeqLen() != seqLen {
		t.Fatalf("unexpected value shape: (%d,%d)", values.BatchSize(), values.SeqLen())
	}
	if next.Layers() != cfg.NumLayers || next.BatchSize() != batchSize || next.Width() != cfg.HiddenWidth {
		t.Fatalf("unexpected next state shape: (%d,%d,%d)", next.Layers(), next.BatchSize(), next.Width())
	}
}

func TestPPORNDNetForwardShapes(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPORNDNet(cfg, 7)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	const batchSize, seqLen = 4, 3
	hidden, err := n.InitialHiddenState(batchSize)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, batchSize, seqLen, cfg.ObsFeatures, 3)

	dist, epi, nonepi, next, err := n.ForwardActorCritic(obs, hidden)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if dist.BatchSize() != batchSize || dist.SeqLen() != seqLen {
		t.Fatalf("unexpected dist shape: (%d,%d)", dist.BatchSize(), dist.SeqLen())
	}
	if epi.BatchSize() != batchSize || epi.SeqLen() != seqLen {
		t.Fatalf("unexpected episodic value shape: (%d,%d)", epi.BatchSize(), epi.SeqLen())
	}
	if nonepi.BatchSize() != batchSize || nonepi.SeqLen() != seqLen {
		t.Fatalf("unexpected non-episodic value shape: (%d,%d)", nonepi.BatchSize(), nonepi.SeqLen())
	}
	if next.Layers() != cfg.NumLayers || next.BatchSize() != batchSize || next.Width() != cfg.HiddenWidth {
		t.Fatalf("unexpected next state shape: (%d,%d,%d)", next.Layers(), next.BatchSize(), next.Width())
	}
}

func TestPPORNDNetValueHeadsAreIndependent(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPORNDNet(cfg, 21)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	hidden, err := n.InitialHiddenState(2)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, 2, 3, cfg.ObsFeatures, 4)

	_, epi, nonepi, _, err := n.ForwardActorCritic(obs, hidden)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	same := true
	for b := 0; b < 2 && same; b++ {
		for u := 0; u < 3; u++ {
			if epi.At(b, u) != nonepi.At(b, u) {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatal("episodic and non-episodic heads produced identical values")
	}
}

func TestForwardRNDShapesAndDeterminism(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPORNDNet(cfg, 9)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	const batchSize = 3
	hidden, err := n.InitialHiddenState(batchSize)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, batchSize, 1, cfg.ObsFeatures, 5)

	predicted, target, err := n.ForwardRND(obs.Data(), hidden.FlattenAll())
	if err != nil {
		t.Fatalf("forward rnd: %v", err)
	}
	pr, pc := predicted.Dims()
	tr, tc := target.Dims()
	if pr != batchSize || pc != cfg.RNDOutFeatures {
		t.Fatalf("unexpected predicted shape: (%d,%d)", pr, pc)
	}
	if tr != pr || tc != pc {
		t.Fatalf("target shape differs from predicted: (%d,%d) vs (%d,%d)", tr, tc, pr, pc)
	}

	// The frozen target must reproduce its features bit for bit.
	_, target2, err := n.ForwardRND(obs.Data(), hidden.FlattenAll())
	if err != nil {
		t.Fatalf("forward rnd: %v", err)
	}
	for r := 0; r < tr; r++ {
		for c := 0; c < tc; c++ {
			if target.At(r, c) != target2.At(r, c) {
				t.Fatalf("target not deterministic at (%d,%d): %g vs %g", r, c, target.At(r, c), target2.At(r, c))
			}
		}
	}

	// A fresh predictor must not already match the target.
	var diff float64
	for r := 0; r < pr; r++ {
		for c := 0; c < pc; c++ {
			diff += math.Abs(predicted.At(r, c) - target.At(r, c))
		}
	}
	if diff == 0 {
		t.Fatal("predictor coincides with target at initialization")
	}
}

func TestForwardRNDShapeMismatch(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPORNDNet(cfg, 9)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	hidden, err := n.InitialHiddenState(2)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	goodObs := randomSeqBatch(t, 2, 1, cfg.ObsFeatures, 6)
	badObs := randomSeqBatch(t, 2, 1, cfg.ObsFeatures+1, 6)
	smallObs := randomSeqBatch(t, 1, 1, cfg.ObsFeatures, 6)

	if _, _, err := n.ForwardRND(badObs.Data(), hidden.FlattenAll()); err == nil {
		t.Fatal("expected observation width error")
	}
	if _, _, err := n.ForwardRND(smallObs.Data(), hidden.FlattenAll()); err == nil {
		t.Fatal("expected batch size mismatch error")
	}
	if _, _, err := n.ForwardRND(goodObs.Data(), goodObs.Data()); err == nil {
		t.Fatal("expected flattened hidden width error")
	}
}

func TestForwardRejectsWrongHiddenShape(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPORNDNet(cfg, 13)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	obs := randomSeqBatch(t, 2, 3, cfg.ObsFeatures, 7)
	wrong, err := NewHiddenState(cfg.NumLayers, 5, cfg.HiddenWidth)
	if err != nil {
		t.Fatalf("hidden state: %v", err)
	}
	if _, _, _, _, err := n.ForwardActorCritic(obs, wrong); err == nil {
		t.Fatal("expected hidden state shape error")
	}

	badWidth, err := NewHiddenState(cfg.NumLayers, 2, cfg.HiddenWidth+1)
	if err != nil {
		t.Fatalf("hidden state: %v", err)
	}
	if _, _, _, _, err := n.ForwardActorCritic(obs, badWidth); err == nil {
		t.Fatal("expected hidden width error")
	}
}

func TestForwardDoesNotMutateInputHidden(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPONet(cfg, 17)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	hidden, err := n.InitialHiddenState(2)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	obs := randomSeqBatch(t, 2, 4, cfg.ObsFeatures, 8)

	_, _, next, err := n.Forward(obs, hidden)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for l := 0; l < cfg.NumLayers; l++ {
		for b := 0; b < 2; b++ {
			for _, v := range hidden.Row(l, b) {
				if v != 0 {
					t.Fatalf("input hidden state mutated at layer %d batch %d", l, b)
				}
			}
		}
	}

	var moved float64
	for l := 0; l < cfg.NumLayers; l++ {
		for b := 0; b < 2; b++ {
			for _, v := range next.Row(l, b) {
				moved += math.Abs(v)
			}
		}
	}
	if moved == 0 {
		t.Fatal("next hidden state did not advance from zero")
	}
}

func TestHiddenStateThreadsAcrossCalls(t *testing.T) {
	cfg := testConfig()
	n, err := NewPPONet(cfg, 19)
	if err != nil {
		t.Fatalf("net: %v", err)
	}

	obsA := randomSeqBatch(t, 1, 2, cfg.ObsFeatures, 9)
	obsB := randomSeqBatch(t, 1, 2, cfg.ObsFeatures, 10)

	// Running A then B with threaded state must match running the
	// concatenated sequence in one call.
	h0, err := n.InitialHiddenState(1)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	_, _, h1, err := n.Forward(obsA, h0)
	if err != nil {
		t.Fatalf("forward A: %v", err)
	}
	_, valSplit, _, err := n.Forward(obsB, h1)
	if err != nil {
		t.Fatalf("forward B: %v", err)
	}

	joined := make([][]float64, 0, 4)
	for t2 := 0; t2 < 2; t2++ {
		joined = append(joined, obsA.Row(0, t2))
	}
	for t2 := 0; t2 < 2; t2++ {
		joined = append(joined, obsB.Row(0, t2))
	}
	obsJoined, err := SeqBatchFromRows(1, 4, joined)
	if err != nil {
		t.Fatalf("joined batch: %v", err)
	}
	h0b, err := n.InitialHiddenState(1)
	if err != nil {
		t.Fatalf("initial hidden: %v", err)
	}
	_, valJoined, _, err := n.Forward(obsJoined, h0b)
	if err != nil {
		t.Fatalf("forward joined: %v", err)
	}

	for u := 0; u < 2; u++ {
		got := valSplit.At(0, u)
		want := valJoined.At(0, u+2)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("threaded state diverges at step %d: got=%g want=%g", u, got, want)
		}
	}
}
