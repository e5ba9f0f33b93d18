package model

import "math"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// MoleculeRecord is one completed episode's metric row. Values holds the
// numeric metrics keyed by metric name ("score" is the ranking metric);
// SMILES is the generated molecule string, empty when the episode produced
// no molecule.
type MoleculeRecord struct {
	Episode int                `json:"episode"`
	SMILES  string             `json:"smiles"`
	Values  map[string]float64 `json:"values"`
}

// Valid reports whether the record carries a molecule and a non-missing
// value for every named column.
func (r MoleculeRecord) Valid(columns []string) bool {
	if r.SMILES == "" {
		return false
	}
	for _, column := range columns {
		v, ok := r.Values[column]
		if !ok || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// RunSummary is the one-row aggregate of an inference run.
type RunSummary struct {
	VersionedRecord
	RunID          string             `json:"run_id"`
	TotalEpisodes  int                `json:"total_episodes"`
	ValidEpisodes  int                `json:"valid_episodes"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Scores         map[string]float64 `json:"scores"`
}

// TopMoleculeRecord ranks a molecule within a run's final report.
type TopMoleculeRecord struct {
	Rank     int            `json:"rank"`
	Score    float64        `json:"score"`
	Molecule MoleculeRecord `json:"molecule"`
}
