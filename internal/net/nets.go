package net

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"molgen/internal/policy"
)

// Config sizes the dense GRU networks in this package.
type Config struct {
	ObsFeatures    int
	NumActions     int
	HiddenWidth    int     // H, per-layer GRU output width
	NumLayers      int     // recurrent layers
	Temperature    float64 // policy head temperature, must be > 0
	RNDOutFeatures int     // out_features shared by predictor and target
}

func (c Config) withDefaults() Config {
	if c.HiddenWidth == 0 {
		c.HiddenWidth = 64
	}
	if c.NumLayers == 0 {
		c.NumLayers = 1
	}
	if c.Temperature == 0 {
		c.Temperature = 1.0
	}
	if c.RNDOutFeatures == 0 {
		c.RNDOutFeatures = 32
	}
	return c
}

func (c Config) validate() error {
	if c.ObsFeatures <= 0 {
		return fmt.Errorf("obs features must be > 0, got=%d", c.ObsFeatures)
	}
	if c.NumActions <= 0 {
		return fmt.Errorf("num actions must be > 0, got=%d", c.NumActions)
	}
	if c.HiddenWidth <= 0 || c.NumLayers <= 0 || c.RNDOutFeatures <= 0 {
		return fmt.Errorf("network dims must be > 0, got=(H=%d,layers=%d,rnd=%d)", c.HiddenWidth, c.NumLayers, c.RNDOutFeatures)
	}
	return nil
}

// core is the shared encoding path: observation embedding, GRU stack and
// policy head. Actor-critic nets own exactly one core so the policy and
// value heads consume the same encoding pass.
type core struct {
	cfg   Config
	embed *linear
	rnn   *gru
	head  *policy.CategoricalPolicy
}

func newCore(cfg Config, rng *rand.Rand) (*core, error) {
	head, err := policy.NewCategoricalPolicy(cfg.HiddenWidth, cfg.NumActions, true, cfg.Temperature, rng)
	if err != nil {
		return nil, err
	}
	return &core{
		cfg:   cfg,
		embed: newLinear(cfg.ObsFeatures, cfg.HiddenWidth, rng),
		rnn:   newGRU(cfg.HiddenWidth, cfg.HiddenWidth, cfg.NumLayers, rng),
		head:  head,
	}, nil
}

func (c *core) encode(obsSeq *SeqBatch, hidden *HiddenState) (*mat.Dense, *HiddenState, error) {
	if obsSeq == nil || hidden == nil {
		return nil, nil, fmt.Errorf("observation sequence and hidden state are required")
	}
	if obsSeq.Features() != c.cfg.ObsFeatures {
		return nil, nil, fmt.Errorf("observation width mismatch: got=%d want=%d", obsSeq.Features(), c.cfg.ObsFeatures)
	}
	embedded, err := c.embed.forward(obsSeq.Data())
	if err != nil {
		return nil, nil, err
	}
	return c.rnn.forward(obsSeq.BatchSize(), obsSeq.SeqLen(), embedded, hidden)
}

func (c *core) dist(encoded *mat.Dense, batchSize, seqLen int) (*DistSeq, error) {
	d, err := c.head.Forward(encoded)
	if err != nil {
		return nil, err
	}
	return newDistSeq(batchSize, seqLen, d)
}

func (c *core) initialHidden(batchSize int) (*HiddenState, error) {
	return NewHiddenState(c.cfg.NumLayers, batchSize, c.cfg.HiddenWidth)
}

func valueHead(head *linear, encoded *mat.Dense, batchSize, seqLen int) (*ValueSeq, error) {
	raw, err := head.forward(encoded)
	if err != nil {
		return nil, err
	}
	values := newValueSeq(batchSize, seqLen)
	for b := 0; b < batchSize; b++ {
		for t := 0; t < seqLen; t++ {
			values.set(b, t, raw.At(b*seqLen+t, 0))
		}
	}
	return values, nil
}

// EncoderNet is a pretrained-style recurrent policy network without value
// heads.
type EncoderNet struct {
	core *core
}

var _ Encoder = (*EncoderNet)(nil)

func NewEncoderNet(cfg Config, seed int64) (*EncoderNet, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c, err := newCore(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return &EncoderNet{core: c}, nil
}

func (n *EncoderNet) Forward(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *HiddenState, error) {
	encoded, next, err := n.core.encode(obsSeq, hidden)
	if err != nil {
		return nil, nil, err
	}
	dist, err := n.core.dist(encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, err
	}
	return dist, next, nil
}

func (n *EncoderNet) InitialHiddenState(batchSize int) (*HiddenState, error) {
	return n.core.initialHidden(batchSize)
}

// PPONet is a recurrent actor-critic with one value head sharing the
// policy encoder.
type PPONet struct {
	core  *core
	value *linear
}

var _ ActorCritic = (*PPONet)(nil)

func NewPPONet(cfg Config, seed int64) (*PPONet, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	c, err := newCore(cfg, rng)
	if err != nil {
		return nil, err
	}
	return &PPONet{core: c, value: newLinear(cfg.HiddenWidth, 1, rng)}, nil
}

func (n *PPONet) Forward(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *ValueSeq, *HiddenState, error) {
	encoded, next, err := n.core.encode(obsSeq, hidden)
	if err != nil {
		return nil, nil, nil, err
	}
	dist, err := n.core.dist(encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, nil, err
	}
	values, err := valueHead(n.value, encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, nil, err
	}
	return dist, values, next, nil
}

func (n *PPONet) InitialHiddenState(batchSize int) (*HiddenState, error) {
	return n.core.initialHidden(batchSize)
}

// PPORNDNet is a recurrent actor-critic with episodic and non-episodic
// value heads plus an RND predictor/target pair. The two value heads share
// only the encoder; the RND pair shares nothing with the actor-critic
// path, and the target's parameters are drawn from an independent source
// at construction and never change afterwards.
type PPORNDNet struct {
	core        *core
	epiValue    *linear
	nonepiValue *linear
	predictor   *mlp
	target      *mlp
	training    bool
}

var _ RNDActorCritic = (*PPORNDNet)(nil)

func NewPPORNDNet(cfg Config, seed int64) (*PPORNDNet, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	c, err := newCore(cfg, rng)
	if err != nil {
		return nil, err
	}

	rndIn := cfg.ObsFeatures + cfg.NumLayers*cfg.HiddenWidth
	// The target draws from its own source so its initial parameters can
	// never coincide with the predictor's.
	targetRng := rand.New(rand.NewSource(seed ^ 0x517cc1b727220a95))
	return &PPORNDNet{
		core:        c,
		epiValue:    newLinear(cfg.HiddenWidth, 1, rng),
		nonepiValue: newLinear(cfg.HiddenWidth, 1, rng),
		predictor:   newMLP([]int{rndIn, cfg.HiddenWidth, cfg.HiddenWidth, cfg.RNDOutFeatures}, rng),
		target:      newMLP([]int{rndIn, cfg.HiddenWidth, cfg.RNDOutFeatures}, targetRng),
	}, nil
}

func (n *PPORNDNet) ForwardActorCritic(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *ValueSeq, *ValueSeq, *HiddenState, error) {
	encoded, next, err := n.core.encode(obsSeq, hidden)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	dist, err := n.core.dist(encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	epi, err := valueHead(n.epiValue, encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	nonepi, err := valueHead(n.nonepiValue, encoded, obsSeq.BatchSize(), obsSeq.SeqLen())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return dist, epi, nonepi, next, nil
}

// ForwardRND computes predictor and target features for a single-timestep
// observation batch concatenated with the flattened hidden state.
func (n *PPORNDNet) ForwardRND(obs, flatHidden *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if obs == nil || flatHidden == nil {
		return nil, nil, fmt.Errorf("observation and hidden state batches are required")
	}
	obsRows, obsCols := obs.Dims()
	hidRows, hidCols := flatHidden.Dims()
	if obsCols != n.core.cfg.ObsFeatures {
		return nil, nil, fmt.Errorf("observation width mismatch: got=%d want=%d", obsCols, n.core.cfg.ObsFeatures)
	}
	wantHidden := n.core.cfg.NumLayers * n.core.cfg.HiddenWidth
	if hidCols != wantHidden {
		return nil, nil, fmt.Errorf("flattened hidden width mismatch: got=%d want=%d", hidCols, wantHidden)
	}
	if obsRows != hidRows {
		return nil, nil, fmt.Errorf("batch size mismatch: got=%d want=%d", hidRows, obsRows)
	}

	input := mat.NewDense(obsRows, obsCols+hidCols, nil)
	for r := 0; r < obsRows; r++ {
		row := input.RawRowView(r)
		copy(row, obs.RawRowView(r))
		copy(row[obsCols:], flatHidden.RawRowView(r))
	}

	predicted, err := n.predictor.forward(input)
	if err != nil {
		return nil, nil, err
	}
	target, err := n.target.forward(input)
	if err != nil {
		return nil, nil, err
	}
	return predicted, target, nil
}

func (n *PPORNDNet) InitialHiddenState(batchSize int) (*HiddenState, error) {
	return n.core.initialHidden(batchSize)
}

// RNDOutFeatures reports the feature width shared by predictor and target.
func (n *PPORNDNet) RNDOutFeatures() int { return n.core.cfg.RNDOutFeatures }

// Config returns the network's sizing.
func (n *PPORNDNet) Config() Config { return n.core.cfg }

// Train switches the network to training mode.
func (n *PPORNDNet) Train() { n.training = true }

// Eval switches the network to inference mode.
func (n *PPORNDNet) Eval() { n.training = false }

// Training reports the current mode.
func (n *PPORNDNet) Training() bool { return n.training }
