//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"molgen/internal/model"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s := NewSQLiteStore(path)
	ctx := context.Background()

	if err := s.SaveRunSummary(ctx, testSummary()); err == nil {
		t.Fatal("expected not-initialized error")
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer s.Close()

	summary := testSummary()
	if err := s.SaveRunSummary(ctx, summary); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	got, ok, err := s.GetRunSummary(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if !ok || got.TotalEpisodes != summary.TotalEpisodes {
		t.Fatalf("summary mismatch: ok=%v %+v", ok, got)
	}

	top := []model.TopMoleculeRecord{
		{Rank: 1, Score: 0.95, Molecule: model.MoleculeRecord{Episode: 3, SMILES: "CCO"}},
	}
	if err := s.SaveTopMolecules(ctx, summary.RunID, top); err != nil {
		t.Fatalf("save top: %v", err)
	}
	gotTop, ok, err := s.GetTopMolecules(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("get top: %v", err)
	}
	if !ok || len(gotTop) != 1 || gotTop[0].Molecule.SMILES != "CCO" {
		t.Fatalf("top mismatch: ok=%v %+v", ok, gotTop)
	}

	if _, ok, err := s.GetTopMolecules(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing top: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	s := NewSQLiteStore("")
	if err := s.Init(context.Background()); err == nil {
		t.Fatal("expected missing path error")
	}
}
