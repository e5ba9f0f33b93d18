// Package agent wraps a recurrent RND actor-critic network with the
// per-environment bookkeeping a sampling loop needs: threading hidden
// state across steps, resetting it at episode boundaries and turning RND
// prediction error into a normalized intrinsic reward signal.
package agent

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"molgen/internal/net"
)

// Experience is one vectorized environment transition.
type Experience struct {
	Obs        *mat.Dense // (numEnvs, obsFeatures)
	Action     []int
	NextObs    *mat.Dense
	Reward     []float64
	Terminated []bool
}

func (e *Experience) check(numEnvs int) error {
	if e.Obs == nil || e.NextObs == nil {
		return fmt.Errorf("experience observations are required")
	}
	if rows, _ := e.Obs.Dims(); rows != numEnvs {
		return fmt.Errorf("experience batch mismatch: got=%d want=%d", rows, numEnvs)
	}
	if len(e.Action) != numEnvs || len(e.Reward) != numEnvs || len(e.Terminated) != numEnvs {
		return fmt.Errorf("experience field lengths mismatch: got=(%d,%d,%d) want=%d",
			len(e.Action), len(e.Reward), len(e.Terminated), numEnvs)
	}
	return nil
}

// Agent drives a PPORNDNet over numEnvs parallel environment slots.
type Agent struct {
	network  *net.PPORNDNet
	numEnvs  int
	hidden   *net.HiddenState
	intNorm  *RunningMeanStd
	lastDist *net.DistSeq
}

func New(network *net.PPORNDNet, numEnvs int) (*Agent, error) {
	if network == nil {
		return nil, fmt.Errorf("network is required")
	}
	if numEnvs <= 0 {
		return nil, fmt.Errorf("num envs must be > 0, got=%d", numEnvs)
	}
	hidden, err := network.InitialHiddenState(numEnvs)
	if err != nil {
		return nil, err
	}
	return &Agent{
		network: network,
		numEnvs: numEnvs,
		hidden:  hidden,
		intNorm: NewRunningMeanStd(),
	}, nil
}

func (a *Agent) NumEnvs() int { return a.numEnvs }

// Network exposes the wrapped network for mode switching.
func (a *Agent) Network() *net.PPORNDNet { return a.network }

// SelectAction samples one action per environment slot from the policy at
// the current hidden state. obs is (numEnvs, obsFeatures).
func (a *Agent) SelectAction(obs *mat.Dense, rng *rand.Rand) ([]int, error) {
	if obs == nil {
		return nil, fmt.Errorf("observation batch is required")
	}
	rows, cols := obs.Dims()
	if rows != a.numEnvs {
		return nil, fmt.Errorf("observation batch mismatch: got=%d want=%d", rows, a.numEnvs)
	}

	seq, err := net.NewSeqBatch(a.numEnvs, 1, cols)
	if err != nil {
		return nil, err
	}
	for b := 0; b < a.numEnvs; b++ {
		copy(seq.Row(b, 0), obs.RawRowView(b))
	}

	dist, _, _, next, err := a.network.ForwardActorCritic(seq, a.hidden)
	if err != nil {
		return nil, err
	}
	a.hidden = next
	a.lastDist = dist
	return dist.Dist().Sample(rng), nil
}

// IntrinsicReward computes the normalized RND prediction error for the
// next observation of each slot, using the hidden state reached after the
// step. New regions of observation space score high until the predictor
// catches up.
func (a *Agent) IntrinsicReward(nextObs *mat.Dense) ([]float64, error) {
	predicted, target, err := a.network.ForwardRND(nextObs, a.hidden.FlattenAll())
	if err != nil {
		return nil, err
	}
	_, outFeatures := predicted.Dims()

	rewards := make([]float64, a.numEnvs)
	for b := 0; b < a.numEnvs; b++ {
		var sq float64
		for c := 0; c < outFeatures; c++ {
			d := predicted.At(b, c) - target.At(b, c)
			sq += d * d
		}
		raw := sq / float64(outFeatures)
		a.intNorm.Update(raw)
		rewards[b] = a.intNorm.Normalize(raw)
	}
	return rewards, nil
}

// Observe folds one transition into the agent: intrinsic reward for the
// next observation plus hidden-state resets for terminated slots.
func (a *Agent) Observe(exp *Experience) ([]float64, error) {
	if exp == nil {
		return nil, fmt.Errorf("experience is required")
	}
	if err := exp.check(a.numEnvs); err != nil {
		return nil, err
	}

	intrinsic, err := a.IntrinsicReward(exp.NextObs)
	if err != nil {
		return nil, err
	}
	for b, done := range exp.Terminated {
		if done {
			a.hidden.ResetBatch(b)
		}
	}
	return intrinsic, nil
}

// LastDist returns the policy distribution from the most recent
// SelectAction call, or nil before the first call.
func (a *Agent) LastDist() *net.DistSeq { return a.lastDist }

// Reset zeroes all per-slot hidden state.
func (a *Agent) Reset() error {
	hidden, err := a.network.InitialHiddenState(a.numEnvs)
	if err != nil {
		return err
	}
	a.hidden = hidden
	return nil
}
