// Package molgen is the embedding API for running molecule generation
// evaluations without going through the CLI.
package molgen

import (
	"context"
	"fmt"
	"math"

	"molgen/internal/agent"
	"molgen/internal/chem"
	"molgen/internal/env"
	"molgen/internal/inference"
	"molgen/internal/model"
	"molgen/internal/net"
	"molgen/internal/run"
	"molgen/internal/storage"
)

const (
	defaultRunsDir = "runs"
	defaultDBPath  = "molgen.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
}

type Client struct {
	store   storage.Store
	runsDir string
}

// EvaluateRequest configures one evaluation run.
type EvaluateRequest struct {
	RunID string

	// Token environment settings.
	Vocab     []string
	MaxLength int
	NumEnvs   int

	// Network sizing; zero values take defaults.
	HiddenWidth    int
	NumLayers      int
	Temperature    float64
	RNDOutFeatures int

	// Budgets.
	EpisodeTarget int
	UniqueTarget  int
	Refset        []string

	Seed int64
}

// EvaluateSummary is the run outcome plus where its artifacts live.
type EvaluateSummary struct {
	RunID        string
	ArtifactsDir string
	Summary      model.RunSummary
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = "memory"
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, runsDir: runsDir}, nil
}

// Close releases the backing store.
func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Evaluate runs a full inference session over a token-building
// environment and returns the aggregate summary.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateSummary, error) {
	if len(req.Vocab) == 0 {
		req.Vocab = []string{"C", "N", "O", "c", "n", "o", "1", "(", ")", "="}
	}
	if req.MaxLength == 0 {
		req.MaxLength = 40
	}
	if req.NumEnvs == 0 {
		req.NumEnvs = 4
	}
	if req.EpisodeTarget == 0 {
		req.EpisodeTarget = 100
	}

	if err := c.store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	singles := make([]env.SingleEnv, 0, req.NumEnvs)
	for i := 0; i < req.NumEnvs; i++ {
		e, err := env.NewTokenEnv(req.Vocab, req.MaxLength, DefaultScorer)
		if err != nil {
			return nil, err
		}
		singles = append(singles, e)
	}
	vec, err := env.Vectorize(singles)
	if err != nil {
		return nil, err
	}

	network, err := net.NewPPORNDNet(net.Config{
		ObsFeatures:    vec.ObsFeatures(),
		NumActions:     vec.NumActions(),
		HiddenWidth:    req.HiddenWidth,
		NumLayers:      req.NumLayers,
		Temperature:    req.Temperature,
		RNDOutFeatures: req.RNDOutFeatures,
	}, req.Seed)
	if err != nil {
		return nil, err
	}
	agt, err := agent.New(network, req.NumEnvs)
	if err != nil {
		return nil, err
	}

	runCtx, err := run.New(c.runsDir, req.RunID)
	if err != nil {
		return nil, err
	}
	if err := runCtx.Enable(); err != nil {
		return nil, err
	}
	defer func() {
		_ = runCtx.Disable()
	}()

	loop, err := inference.New(runCtx, vec, agt, c.store, inference.Config{
		EpisodeTarget: req.EpisodeTarget,
		UniqueTarget:  req.UniqueTarget,
		Refset:        req.Refset,
		ValueColumns:  []string{"score", "length"},
		Seed:          req.Seed,
	})
	if err != nil {
		return nil, err
	}

	summary, err := loop.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &EvaluateSummary{
		RunID:        runCtx.ID(),
		ArtifactsDir: runCtx.Dir(),
		Summary:      *summary,
	}, nil
}

// GetRun fetches a persisted run summary.
func (c *Client) GetRun(ctx context.Context, runID string) (model.RunSummary, bool, error) {
	if err := c.store.Init(ctx); err != nil {
		return model.RunSummary{}, false, err
	}
	return c.store.GetRunSummary(ctx, runID)
}

// GetTopMolecules fetches a run's ranked molecules.
func (c *Client) GetTopMolecules(ctx context.Context, runID string) ([]model.TopMoleculeRecord, bool, error) {
	if err := c.store.Init(ctx); err != nil {
		return nil, false, err
	}
	return c.store.GetTopMolecules(ctx, runID)
}

// DefaultScorer rates a molecule by token variety and a soft length
// preference. Unparseable strings score NaN so they drop out of
// aggregation.
func DefaultScorer(smiles string) map[string]float64 {
	tokens, err := chem.Tokenize(smiles)
	if err != nil {
		return map[string]float64{"score": math.NaN(), "length": math.NaN()}
	}

	distinct := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		distinct[tok] = struct{}{}
	}
	variety := float64(len(distinct)) / float64(len(tokens))

	// Peaks at 20 tokens and falls off on both sides.
	lengthFit := 1.0 - math.Abs(float64(len(tokens))-20)/20
	if lengthFit < 0 {
		lengthFit = 0
	}
	return map[string]float64{
		"score":  0.5*variety + 0.5*lengthFit,
		"length": float64(len(tokens)),
	}
}
