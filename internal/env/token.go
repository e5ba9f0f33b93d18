package env

import (
	"context"
	"fmt"
	"strings"
)

// Scorer maps a finished SMILES string to named property values. NaN
// entries mark properties that could not be computed.
type Scorer func(smiles string) map[string]float64

// TokenEnv builds a molecule one vocabulary token at a time. Each action
// appends a token; the stop action or the length limit terminates the
// episode and the assembled string is scored. Observations are a one-hot
// of the previous token plus a length fraction.
type TokenEnv struct {
	vocab   []string
	maxLen  int
	scorer  Scorer
	tokens  []string
	started bool
	closed  bool
}

// Stop action index is the last vocabulary slot.
func NewTokenEnv(vocab []string, maxLen int, scorer Scorer) (*TokenEnv, error) {
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocabulary must be non-empty")
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("max length must be > 0, got=%d", maxLen)
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	return &TokenEnv{vocab: vocab, maxLen: maxLen, scorer: scorer}, nil
}

func (e *TokenEnv) ObsFeatures() int { return len(e.vocab) + 2 }
func (e *TokenEnv) NumActions() int  { return len(e.vocab) + 1 }

func (e *TokenEnv) stopAction() int { return len(e.vocab) }

func (e *TokenEnv) observe() []float64 {
	obs := make([]float64, e.ObsFeatures())
	if len(e.tokens) == 0 {
		obs[len(e.vocab)] = 1 // start marker
	} else {
		last := e.tokens[len(e.tokens)-1]
		for i, tok := range e.vocab {
			if tok == last {
				obs[i] = 1
				break
			}
		}
	}
	obs[len(e.vocab)+1] = float64(len(e.tokens)) / float64(e.maxLen)
	return obs
}

func (e *TokenEnv) Reset(ctx context.Context) ([]float64, error) {
	if e.closed {
		return nil, fmt.Errorf("environment is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.tokens = e.tokens[:0]
	e.started = true
	return e.observe(), nil
}

func (e *TokenEnv) Step(ctx context.Context, action int) ([]float64, float64, bool, *EpisodeMetric, error) {
	if e.closed {
		return nil, 0, false, nil, fmt.Errorf("environment is closed")
	}
	if !e.started {
		return nil, 0, false, nil, fmt.Errorf("environment is not reset")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, false, nil, err
	}
	if action < 0 || action >= e.NumActions() {
		return nil, 0, false, nil, fmt.Errorf("action out of range: got=%d want<%d", action, e.NumActions())
	}

	if action != e.stopAction() {
		e.tokens = append(e.tokens, e.vocab[action])
	}
	done := action == e.stopAction() || len(e.tokens) >= e.maxLen
	if !done {
		return e.observe(), 0, false, nil, nil
	}

	smiles := strings.Join(e.tokens, "")
	metric := &EpisodeMetric{SMILES: smiles, Values: e.scorer(smiles)}
	reward := 0.0
	if v, ok := metric.Values["score"]; ok {
		reward = v
	}
	e.started = false
	return e.observe(), reward, true, metric, nil
}

func (e *TokenEnv) Close() error {
	if e.closed {
		return fmt.Errorf("environment is closed")
	}
	e.closed = true
	return nil
}
