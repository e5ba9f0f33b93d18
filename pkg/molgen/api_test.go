package molgen

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEvaluateEndToEnd(t *testing.T) {
	client, err := New(Options{StoreKind: "memory", RunsDir: t.TempDir()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	result, err := client.Evaluate(ctx, EvaluateRequest{
		RunID:         "smoke",
		NumEnvs:       2,
		MaxLength:     6,
		EpisodeTarget: 4,
		Seed:          11,
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	if result.RunID != "smoke" {
		t.Fatalf("unexpected run id: %q", result.RunID)
	}
	if result.Summary.TotalEpisodes != 4 {
		t.Fatalf("unexpected episode count: got=%d want=4", result.Summary.TotalEpisodes)
	}
	if _, err := os.Stat(filepath.Join(result.ArtifactsDir, "run.log")); err != nil {
		t.Fatalf("run log missing: %v", err)
	}

	if result.Summary.ValidEpisodes > 0 {
		if _, err := os.Stat(filepath.Join(result.ArtifactsDir, "inference", "molecules.csv")); err != nil {
			t.Fatalf("molecules.csv missing: %v", err)
		}
		saved, ok, err := client.GetRun(ctx, "smoke")
		if err != nil || !ok {
			t.Fatalf("run not persisted: ok=%v err=%v", ok, err)
		}
		if saved.TotalEpisodes != 4 {
			t.Fatalf("persisted summary mismatch: %+v", saved)
		}
	}
}

func TestDefaultScorer(t *testing.T) {
	values := DefaultScorer("CNO")
	if values["length"] != 3 {
		t.Fatalf("unexpected length: %f", values["length"])
	}
	if values["score"] <= 0 || values["score"] > 1 {
		t.Fatalf("score out of range: %f", values["score"])
	}

	invalid := DefaultScorer("")
	if !math.IsNaN(invalid["score"]) || !math.IsNaN(invalid["length"]) {
		t.Fatalf("empty molecule must score NaN: %+v", invalid)
	}
}
