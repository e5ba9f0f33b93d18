package storage

import (
	"context"

	"molgen/internal/model"
)

// Store defines persistence operations for run results.
type Store interface {
	Init(ctx context.Context) error
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
	SaveTopMolecules(ctx context.Context, runID string, top []model.TopMoleculeRecord) error
	GetTopMolecules(ctx context.Context, runID string) ([]model.TopMoleculeRecord, bool, error)
	SaveMolecules(ctx context.Context, runID string, molecules []model.MoleculeRecord) error
	GetMolecules(ctx context.Context, runID string) ([]model.MoleculeRecord, bool, error)
}
