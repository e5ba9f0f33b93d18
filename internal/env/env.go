// Package env defines the vectorized environment contract the inference
// loop samples from, plus a wrapper that lifts single environments into
// auto-resetting vectorized ones.
package env

import "context"

// EpisodeMetric is the record an environment emits when an episode
// completes: the generated molecule plus its scored properties. Values may
// contain NaN entries for properties the scorer could not compute.
type EpisodeMetric struct {
	Episode int
	SMILES  string
	Values  map[string]float64
}

// StepResult is the outcome of advancing every slot by one action.
//
// NextObs always holds the observation to act on next; for slots that
// terminated this step it is the first observation of the new episode,
// and the terminal observation is kept in FinalObs under the slot index.
type StepResult struct {
	NextObs    [][]float64
	Reward     []float64
	Terminated []bool
	FinalObs   map[int][]float64
	Metrics    []*EpisodeMetric
}

// Env is a vectorized environment with auto-reset semantics.
type Env interface {
	// NumEnvs reports the number of parallel slots.
	NumEnvs() int

	// ObsFeatures reports the per-slot observation width.
	ObsFeatures() int

	// NumActions reports the size of the discrete action space.
	NumActions() int

	// Reset starts a fresh episode in every slot.
	Reset(ctx context.Context) ([][]float64, error)

	// Step advances every slot with its action and auto-resets slots that
	// terminate.
	Step(ctx context.Context, actions []int) (*StepResult, error)

	// Close releases environment resources. Step and Reset must not be
	// called afterwards.
	Close() error
}

// SingleEnv is one environment instance. Vectorize adapts a set of these
// into an Env.
type SingleEnv interface {
	ObsFeatures() int
	NumActions() int
	Reset(ctx context.Context) ([]float64, error)

	// Step returns the next observation, the reward, whether the episode
	// terminated and, on termination, the episode metric.
	Step(ctx context.Context, action int) ([]float64, float64, bool, *EpisodeMetric, error)
	Close() error
}
