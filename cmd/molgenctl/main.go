package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	molapi "molgen/pkg/molgen"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	configPath := fs.String("config", "", "json config file")
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "molgen.db", "sqlite database path")
	runsDir := fs.String("runs-dir", "runs", "artifact output directory")
	runID := fs.String("run-id", "", "run identifier (generated when empty)")
	episodes := fs.Int("episodes", 100, "episode target")
	uniqueTarget := fs.Int("unique", 0, "unique-molecule target, 0 disables early exit")
	numEnvs := fs.Int("envs", 4, "parallel environment slots")
	maxLength := fs.Int("max-length", 40, "molecule token length limit")
	seed := fs.Int64("seed", 1, "random seed")
	temperature := fs.Float64("temperature", 1.0, "policy sampling temperature")
	refsetPath := fs.String("refset", "", "reference molecule file, one smiles per line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := molapi.EvaluateRequest{
		RunID:         *runID,
		EpisodeTarget: *episodes,
		UniqueTarget:  *uniqueTarget,
		NumEnvs:       *numEnvs,
		MaxLength:     *maxLength,
		Temperature:   *temperature,
		Seed:          *seed,
	}
	if *configPath != "" {
		loaded, err := loadEvaluateRequestFromConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		req = loaded
	}
	if *refsetPath != "" {
		refset, err := loadRefset(*refsetPath)
		if err != nil {
			return fmt.Errorf("load refset: %w", err)
		}
		req.Refset = refset
	}

	client, err := molapi.New(molapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPath,
		RunsDir:   *runsDir,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Evaluate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run %s finished: %d episodes, %d valid, artifacts in %s\n",
		result.RunID, result.Summary.TotalEpisodes, result.Summary.ValidEpisodes, result.ArtifactsDir)
	for _, name := range sortedScoreNames(result.Summary.Scores) {
		fmt.Printf("  %s = %.4f\n", name, result.Summary.Scores[name])
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "molgen.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("show requires -run-id")
	}

	client, err := molapi.New(molapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	summary, ok, err := client.GetRun(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", *runID)
	}

	fmt.Printf("run %s: %d episodes, %d valid, %.1fs elapsed\n",
		summary.RunID, summary.TotalEpisodes, summary.ValidEpisodes, summary.ElapsedSeconds)
	for _, name := range sortedScoreNames(summary.Scores) {
		fmt.Printf("  %s = %.4f\n", name, summary.Scores[name])
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	storeKind := fs.String("store", "memory", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "molgen.db", "sqlite database path")
	runID := fs.String("run-id", "", "run identifier")
	limit := fs.Int("limit", 10, "number of molecules to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("top requires -run-id")
	}

	client, err := molapi.New(molapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()

	top, ok, err := client.GetTopMolecules(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", *runID)
	}

	for i, rec := range top {
		if i >= *limit {
			break
		}
		fmt.Printf("%3d  %.4f  %s\n", rec.Rank, rec.Score, rec.Molecule.SMILES)
	}
	return nil
}

func loadRefset(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var refset []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			refset = append(refset, line)
		}
	}
	if len(refset) == 0 {
		return nil, fmt.Errorf("refset file %s is empty", path)
	}
	return refset, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: molgenctl <evaluate|show|top> [flags]", msg)
}
