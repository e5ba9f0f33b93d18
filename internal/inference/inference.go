// Package inference drives a no-learning evaluation run: an agent samples
// molecules from a vectorized environment until an episode or uniqueness
// budget is met, then the per-episode metrics are aggregated and written
// out as run artifacts.
package inference

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"molgen/internal/agent"
	"molgen/internal/chem"
	"molgen/internal/env"
	"molgen/internal/model"
	"molgen/internal/run"
	"molgen/internal/stats"
	"molgen/internal/storage"
)

// State is the loop's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateAggregating
	StateReporting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAggregating:
		return "aggregating"
	case StateReporting:
		return "reporting"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const topMoleculeCount = 50

// Config holds the evaluation budgets and metric schema.
type Config struct {
	// EpisodeTarget is the number of completed episodes to evaluate.
	EpisodeTarget int

	// UniqueTarget, when > 0, ends the run early once that many distinct
	// canonical molecules have been seen.
	UniqueTarget int

	// Refset enables novelty scoring against a reference molecule set.
	Refset []string

	// ValueColumns declares the per-episode metric columns. ScoreColumn
	// must be one of them; it ranks molecules for the best-row and
	// top-grid artifacts.
	ValueColumns []string
	ScoreColumn  string

	Seed int64
}

func (c *Config) withDefaults() {
	if c.ScoreColumn == "" {
		c.ScoreColumn = "score"
	}
	if len(c.ValueColumns) == 0 {
		c.ValueColumns = []string{c.ScoreColumn}
	}
}

func (c *Config) validate() error {
	if c.EpisodeTarget <= 0 {
		return fmt.Errorf("episode target must be > 0, got=%d", c.EpisodeTarget)
	}
	if c.UniqueTarget < 0 {
		return fmt.Errorf("unique target must be >= 0, got=%d", c.UniqueTarget)
	}
	for _, col := range c.ValueColumns {
		if col == c.ScoreColumn {
			return nil
		}
	}
	return fmt.Errorf("score column %q is not a declared value column", c.ScoreColumn)
}

// Loop is a single-use evaluation session.
type Loop struct {
	runCtx *run.Context
	envs   env.Env
	agt    *agent.Agent
	store  storage.Store
	cfg    Config

	state    State
	rng      *rand.Rand
	unique   map[string]struct{}
	episodes int
	records  []model.MoleculeRecord
	metric   *chem.MolMetric
}

// New wires an evaluation session. store may be nil when persistence
// beyond file artifacts is not wanted.
func New(runCtx *run.Context, e env.Env, a *agent.Agent, store storage.Store, cfg Config) (*Loop, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if runCtx == nil {
		return nil, fmt.Errorf("run context is required")
	}
	if e == nil || a == nil {
		return nil, fmt.Errorf("environment and agent are required")
	}
	if a.NumEnvs() != e.NumEnvs() {
		return nil, fmt.Errorf("agent/env slot mismatch: got=%d want=%d", a.NumEnvs(), e.NumEnvs())
	}

	metric := chem.NewMolMetric()
	if len(cfg.Refset) > 0 {
		var err error
		metric, err = chem.NewMolMetricWithRefset(cfg.Refset)
		if err != nil {
			return nil, fmt.Errorf("reference set: %w", err)
		}
	}
	return &Loop{
		runCtx: runCtx,
		envs:   e,
		agt:    a,
		store:  store,
		cfg:    cfg,
		state:  StateIdle,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		unique: make(map[string]struct{}),
		metric: metric,
	}, nil
}

// State reports the loop's lifecycle position.
func (l *Loop) State() State { return l.state }

// UniqueCount reports the number of distinct canonical molecules seen.
func (l *Loop) UniqueCount() int { return len(l.unique) }

// Run executes the full session and closes the loop. A Loop is
// single-use: calling Run again fails.
func (l *Loop) Run(ctx context.Context) (*model.RunSummary, error) {
	if l.state == StateClosed {
		return nil, fmt.Errorf("inference is already closed")
	}
	if l.state != StateIdle {
		return nil, fmt.Errorf("inference is already %s", l.state)
	}
	defer l.close()

	started := time.Now()
	l.agt.Network().Eval()
	l.state = StateRunning

	if err := l.sample(ctx); err != nil {
		return nil, err
	}

	l.state = StateAggregating
	summary, scores, valid := l.aggregate(started)
	if len(valid) == 0 {
		l.runCtx.Printf("no valid molecule generated in %d episodes", summary.TotalEpisodes)
		return summary, nil
	}

	l.state = StateReporting
	if err := l.report(ctx, summary, scores, valid); err != nil {
		return nil, err
	}
	return summary, nil
}

func (l *Loop) sample(ctx context.Context) error {
	obs, err := l.envs.Reset(ctx)
	if err != nil {
		return fmt.Errorf("reset environment: %w", err)
	}
	progress := run.NewProgress(l.runCtx, "episodes", l.cfg.EpisodeTarget)

	// The budget counts completed episodes across all slots. A slot may
	// terminate without reporting a metric; that episode still consumes
	// budget, it just contributes no table row.
	for l.episodes < l.cfg.EpisodeTarget {
		if err := ctx.Err(); err != nil {
			return err
		}

		obsBatch := denseFromRows(obs)
		actions, err := l.agt.SelectAction(obsBatch, l.rng)
		if err != nil {
			return fmt.Errorf("select action: %w", err)
		}

		result, err := l.envs.Step(ctx, actions)
		if err != nil {
			return fmt.Errorf("step environment: %w", err)
		}

		// Learning-free update: running statistics track the inference
		// distribution. Terminated slots get their true final observation
		// instead of the auto-reset one.
		nextRows := make([][]float64, len(result.NextObs))
		copy(nextRows, result.NextObs)
		for slot, final := range result.FinalObs {
			nextRows[slot] = final
		}
		_, err = l.agt.Observe(&agent.Experience{
			Obs:        obsBatch,
			Action:     actions,
			NextObs:    denseFromRows(nextRows),
			Reward:     result.Reward,
			Terminated: result.Terminated,
		})
		if err != nil {
			return fmt.Errorf("agent update: %w", err)
		}

		terminated := 0
		for _, done := range result.Terminated {
			if done {
				terminated++
			}
		}
		l.episodes += terminated

		for _, m := range result.Metrics {
			l.records = append(l.records, model.MoleculeRecord{
				Episode: m.Episode,
				SMILES:  m.SMILES,
				Values:  m.Values,
			})
			if canon, err := chem.Canonical(m.SMILES); err == nil {
				l.unique[canon] = struct{}{}
			}
		}
		if l.episodes > l.cfg.EpisodeTarget {
			progress.SetTotal(l.episodes)
		}
		progress.Add(terminated)

		if l.cfg.UniqueTarget > 0 && len(l.unique) >= l.cfg.UniqueTarget {
			l.runCtx.Printf("unique-molecule budget reached: %d distinct molecules after %d episodes",
				len(l.unique), l.episodes)
			break
		}
		obs = result.NextObs
	}
	return nil
}

// aggregate truncates to the episode target, drops rows with missing
// values and computes column means plus the molecule-set statistics.
// Degenerate metric inputs drop the affected field rather than failing.
func (l *Loop) aggregate(started time.Time) (*model.RunSummary, map[string]float64, []model.MoleculeRecord) {
	total := l.episodes
	if total > l.cfg.EpisodeTarget {
		total = l.cfg.EpisodeTarget
	}
	table := l.records
	if len(table) > l.cfg.EpisodeTarget {
		table = table[:l.cfg.EpisodeTarget]
	}

	valid := make([]model.MoleculeRecord, 0, len(table))
	for _, rec := range table {
		if rec.Valid(l.cfg.ValueColumns) {
			valid = append(valid, rec)
		}
	}

	scores := make(map[string]float64)
	if len(valid) > 0 {
		for _, col := range l.cfg.ValueColumns {
			var sum float64
			for _, rec := range valid {
				sum += rec.Values[col]
			}
			scores[col] = sum / float64(len(valid))
		}

		smiles := make([]string, 0, len(valid))
		for _, rec := range valid {
			smiles = append(smiles, rec.SMILES)
		}
		if u, err := l.metric.Uniqueness(smiles); err == nil {
			scores["uniqueness"] = u
		} else {
			l.runCtx.Printf("uniqueness unavailable: %v", err)
		}
		if d, err := l.metric.Diversity(smiles); err == nil {
			scores["diversity"] = d
		} else {
			l.runCtx.Printf("diversity unavailable: %v", err)
		}
		if l.metric.HasRefset() {
			if n, err := l.metric.Novelty(smiles); err == nil {
				scores["novelty"] = n
			} else {
				l.runCtx.Printf("novelty unavailable: %v", err)
			}
		}
	}

	summary := &model.RunSummary{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:          l.runCtx.ID(),
		TotalEpisodes:  total,
		ValidEpisodes:  len(valid),
		ElapsedSeconds: time.Since(started).Seconds(),
		Scores:         scores,
	}
	return summary, scores, valid
}

func (l *Loop) report(ctx context.Context, summary *model.RunSummary, scores map[string]float64, valid []model.MoleculeRecord) error {
	if err := os.MkdirAll(l.runCtx.ArtifactPath("inference"), 0o755); err != nil {
		return fmt.Errorf("create inference directory: %w", err)
	}

	if err := l.writeMolecules(); err != nil {
		return err
	}
	if err := l.writeSummaryRow(summary, scores); err != nil {
		return err
	}

	best := bestRecord(valid, l.cfg.ScoreColumn)
	path := l.runCtx.ArtifactPath("inference/best_molecule.csv")
	if err := stats.WriteBestMolecule(path, l.cfg.ValueColumns, best); err != nil {
		return fmt.Errorf("write best molecule: %w", err)
	}

	top := topRecords(valid, l.cfg.ScoreColumn, topMoleculeCount)
	l.renderTop(top)

	if l.store != nil {
		if err := l.persist(ctx, summary, top); err != nil {
			return err
		}
	}
	l.runCtx.Printf("evaluation finished: %d episodes, %d valid, best %s=%.4f",
		summary.TotalEpisodes, summary.ValidEpisodes, l.cfg.ScoreColumn, best.Values[l.cfg.ScoreColumn])
	return nil
}

func (l *Loop) writeMolecules() error {
	log, err := stats.NewMoleculeLog(l.runCtx.ArtifactPath("inference/molecules.csv"), l.cfg.ValueColumns)
	if err != nil {
		return err
	}
	for _, rec := range l.records {
		if err := log.Append(rec); err != nil {
			log.Close()
			return fmt.Errorf("write molecule row: %w", err)
		}
	}
	return log.Close()
}

func (l *Loop) writeSummaryRow(summary *model.RunSummary, scores map[string]float64) error {
	columns := []string{"episodes", "valid_episodes", "elapsed_seconds"}
	fields := map[string]string{
		"episodes":        strconv.Itoa(summary.TotalEpisodes),
		"valid_episodes":  strconv.Itoa(summary.ValidEpisodes),
		"elapsed_seconds": stats.FormatFloat(summary.ElapsedSeconds),
	}
	for _, name := range stats.SortedKeys(scores) {
		columns = append(columns, name)
		fields[name] = stats.FormatFloat(scores[name])
	}

	path := l.runCtx.ArtifactPath("inference/metrics.csv")
	if err := stats.WriteSummary(path, columns, fields); err != nil {
		return fmt.Errorf("write metrics summary: %w", err)
	}
	return nil
}

// renderTop draws the top-molecule grid. Rendering failures are logged
// and skipped; the run still succeeds without the image.
func (l *Loop) renderTop(top []model.TopMoleculeRecord) {
	if len(top) == 0 {
		return
	}
	molecules := make([]chem.LabeledMolecule, 0, len(top))
	for _, rec := range top {
		molecules = append(molecules, chem.LabeledMolecule{
			SMILES:  rec.Molecule.SMILES,
			Caption: fmt.Sprintf("%s=%.4f", l.cfg.ScoreColumn, rec.Score),
		})
	}

	path := l.runCtx.ArtifactPath("inference/top_50_unique_molecules.png")
	file, err := os.Create(path)
	if err != nil {
		l.runCtx.Printf("molecule rendering unavailable: %v", err)
		return
	}
	defer file.Close()
	if err := chem.DrawMolecules(file, molecules); err != nil {
		l.runCtx.Printf("molecule rendering unavailable: %v", err)
	}
}

func (l *Loop) persist(ctx context.Context, summary *model.RunSummary, top []model.TopMoleculeRecord) error {
	if err := l.store.SaveRunSummary(ctx, *summary); err != nil {
		return fmt.Errorf("persist run summary: %w", err)
	}
	if err := l.store.SaveTopMolecules(ctx, summary.RunID, top); err != nil {
		return fmt.Errorf("persist top molecules: %w", err)
	}
	if err := l.store.SaveMolecules(ctx, summary.RunID, l.records); err != nil {
		return fmt.Errorf("persist molecules: %w", err)
	}
	return nil
}

func (l *Loop) close() {
	if l.state == StateClosed {
		return
	}
	l.state = StateClosed
	if err := l.envs.Close(); err != nil {
		l.runCtx.Printf("close environment: %v", err)
	}
}

// bestRecord picks the highest-scoring row, first occurrence winning
// ties.
func bestRecord(valid []model.MoleculeRecord, scoreColumn string) model.MoleculeRecord {
	best := valid[0]
	for _, rec := range valid[1:] {
		if rec.Values[scoreColumn] > best.Values[scoreColumn] {
			best = rec
		}
	}
	return best
}

// topRecords ranks the distinct-by-canonical-form molecules by score and
// keeps the first n.
func topRecords(valid []model.MoleculeRecord, scoreColumn string, n int) []model.TopMoleculeRecord {
	seen := make(map[string]struct{}, len(valid))
	distinct := make([]model.MoleculeRecord, 0, len(valid))
	for _, rec := range valid {
		canon, err := chem.Canonical(rec.SMILES)
		if err != nil {
			continue
		}
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		distinct = append(distinct, rec)
	}

	sort.SliceStable(distinct, func(i, j int) bool {
		return distinct[i].Values[scoreColumn] > distinct[j].Values[scoreColumn]
	})
	if len(distinct) > n {
		distinct = distinct[:n]
	}

	top := make([]model.TopMoleculeRecord, 0, len(distinct))
	for i, rec := range distinct {
		top = append(top, model.TopMoleculeRecord{
			Rank:     i + 1,
			Score:    rec.Values[scoreColumn],
			Molecule: rec,
		})
	}
	return top
}

func denseFromRows(rows [][]float64) *mat.Dense {
	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		out.SetRow(i, row)
	}
	return out
}
