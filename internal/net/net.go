// Package net defines the recurrent network contracts for molecule
// generation agents and dense GRU implementations of them.
//
// All sequence forward passes use the batch-first layout
// (seqBatchSize, seqLen, *obsShape); hidden states are
// (D x numLayers, seqBatchSize, H) with D=1 for the unidirectional stacks
// here (H is the GRU output width). Callers own the threading of hidden
// states between consecutive forward calls; implementations never mutate a
// caller's state in place.
package net

import "gonum.org/v1/gonum/mat"

// Encoder is a pretrained recurrent network that produces only a policy
// distribution, e.g. a token-prediction model trained independently of
// value estimation.
type Encoder interface {
	// Forward maps an observation sequence and the hidden state at the
	// start of the sequence to a policy distribution sequence and the
	// hidden state to use for the next sequence.
	Forward(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *HiddenState, error)

	// InitialHiddenState returns a zero state shaped for batchSize
	// sequences.
	InitialHiddenState(batchSize int) (*HiddenState, error)
}

// ActorCritic is a recurrent PPO network. The encoding layers are shared
// between the policy head and the value head: one encoding pass feeds both
// outputs.
type ActorCritic interface {
	Forward(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *ValueSeq, *HiddenState, error)
	InitialHiddenState(batchSize int) (*HiddenState, error)
}

// RNDActorCritic is a recurrent PPO network with random network
// distillation. The actor-critic side shares its encoder between the
// policy head and two independent value heads (episodic and
// non-episodic); the RND predictor and target share no parameters with
// the actor-critic side or with each other, and the target is frozen for
// the lifetime of the network.
type RNDActorCritic interface {
	ForwardActorCritic(obsSeq *SeqBatch, hidden *HiddenState) (*DistSeq, *ValueSeq, *ValueSeq, *HiddenState, error)

	// ForwardRND operates on single-timestep batches: obs is
	// (batchSize, obsFeatures) and flatHidden is the flattened
	// (batchSize, D*numLayers*H) hidden state. Both returned feature
	// matrices are (batchSize, outFeatures); only the predicted feature
	// belongs to a trainable subnetwork.
	ForwardRND(obs, flatHidden *mat.Dense) (predicted, target *mat.Dense, err error)

	InitialHiddenState(batchSize int) (*HiddenState, error)
}
