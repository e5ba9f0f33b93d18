package env

import (
	"context"
	"fmt"
)

// vecEnv lifts a slice of single environments into the vectorized
// contract, resetting each slot as soon as it terminates and counting
// completed episodes across all slots.
type vecEnv struct {
	envs     []SingleEnv
	episodes int
	closed   bool
}

// Vectorize wraps envs into an auto-resetting vectorized environment. All
// wrapped environments must agree on observation width and action count.
func Vectorize(envs []SingleEnv) (Env, error) {
	if len(envs) == 0 {
		return nil, fmt.Errorf("at least one environment is required")
	}
	features := envs[0].ObsFeatures()
	actions := envs[0].NumActions()
	for i, e := range envs {
		if e.ObsFeatures() != features {
			return nil, fmt.Errorf("env %d observation width mismatch: got=%d want=%d", i, e.ObsFeatures(), features)
		}
		if e.NumActions() != actions {
			return nil, fmt.Errorf("env %d action count mismatch: got=%d want=%d", i, e.NumActions(), actions)
		}
	}
	return &vecEnv{envs: envs}, nil
}

func (v *vecEnv) NumEnvs() int     { return len(v.envs) }
func (v *vecEnv) ObsFeatures() int { return v.envs[0].ObsFeatures() }
func (v *vecEnv) NumActions() int  { return v.envs[0].NumActions() }

func (v *vecEnv) Reset(ctx context.Context) ([][]float64, error) {
	if v.closed {
		return nil, fmt.Errorf("environment is closed")
	}
	obs := make([][]float64, len(v.envs))
	for i, e := range v.envs {
		o, err := e.Reset(ctx)
		if err != nil {
			return nil, fmt.Errorf("reset env %d: %w", i, err)
		}
		obs[i] = o
	}
	return obs, nil
}

func (v *vecEnv) Step(ctx context.Context, actions []int) (*StepResult, error) {
	if v.closed {
		return nil, fmt.Errorf("environment is closed")
	}
	if len(actions) != len(v.envs) {
		return nil, fmt.Errorf("action count mismatch: got=%d want=%d", len(actions), len(v.envs))
	}

	result := &StepResult{
		NextObs:    make([][]float64, len(v.envs)),
		Reward:     make([]float64, len(v.envs)),
		Terminated: make([]bool, len(v.envs)),
		FinalObs:   make(map[int][]float64),
	}
	for i, e := range v.envs {
		obs, reward, done, metric, err := e.Step(ctx, actions[i])
		if err != nil {
			return nil, fmt.Errorf("step env %d: %w", i, err)
		}
		result.Reward[i] = reward
		result.Terminated[i] = done
		if !done {
			result.NextObs[i] = obs
			continue
		}

		v.episodes++
		result.FinalObs[i] = obs
		if metric != nil {
			metric.Episode = v.episodes
			result.Metrics = append(result.Metrics, metric)
		}
		fresh, err := e.Reset(ctx)
		if err != nil {
			return nil, fmt.Errorf("auto-reset env %d: %w", i, err)
		}
		result.NextObs[i] = fresh
	}
	return result, nil
}

func (v *vecEnv) Close() error {
	if v.closed {
		return fmt.Errorf("environment is closed")
	}
	v.closed = true
	var firstErr error
	for i, e := range v.envs {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close env %d: %w", i, err)
		}
	}
	return firstErr
}
