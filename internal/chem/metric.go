package chem

import "fmt"

// MolMetric scores a population of generated molecules. A reference set
// is optional; Novelty is only defined when one was provided.
type MolMetric struct {
	refset map[string]struct{}
}

func NewMolMetric() *MolMetric {
	return &MolMetric{}
}

// NewMolMetricWithRefset builds a metric with a canonicalized reference
// set for novelty scoring.
func NewMolMetricWithRefset(refset []string) (*MolMetric, error) {
	canon := Canonicalize(refset)
	if len(canon) == 0 {
		return nil, fmt.Errorf("reference set has no parseable molecules")
	}
	set := make(map[string]struct{}, len(canon))
	for _, s := range canon {
		set[s] = struct{}{}
	}
	return &MolMetric{refset: set}, nil
}

// HasRefset reports whether novelty can be computed.
func (m *MolMetric) HasRefset() bool { return m.refset != nil }

// Preprocess canonicalizes and deduplicates the population, dropping
// unparseable strings.
func (m *MolMetric) Preprocess(smiles []string) []string {
	return Canonicalize(smiles)
}

// Uniqueness is the ratio of distinct canonical molecules to population
// size.
func (m *MolMetric) Uniqueness(smiles []string) (float64, error) {
	if len(smiles) == 0 {
		return 0, fmt.Errorf("population is empty")
	}
	return float64(len(Canonicalize(smiles))) / float64(len(smiles)), nil
}

// Diversity is one minus the mean pairwise Tanimoto similarity over the
// distinct canonical molecules. A single-molecule population has no pairs
// and scores zero.
func (m *MolMetric) Diversity(smiles []string) (float64, error) {
	canon := Canonicalize(smiles)
	if len(canon) == 0 {
		return 0, fmt.Errorf("population has no parseable molecules")
	}
	if len(canon) == 1 {
		return 0, nil
	}

	fps := make([]*Fingerprint, 0, len(canon))
	for _, s := range canon {
		fp, err := ComputeFingerprint(s)
		if err != nil {
			return 0, fmt.Errorf("fingerprint %q: %w", s, err)
		}
		fps = append(fps, fp)
	}

	var total float64
	var pairs int
	for i := 0; i < len(fps); i++ {
		for j := i + 1; j < len(fps); j++ {
			sim, err := Tanimoto(fps[i], fps[j])
			if err != nil {
				return 0, err
			}
			total += sim
			pairs++
		}
	}
	return 1.0 - total/float64(pairs), nil
}

// Novelty is the fraction of distinct canonical molecules absent from the
// reference set. It errors when the metric was built without one.
func (m *MolMetric) Novelty(smiles []string) (float64, error) {
	if m.refset == nil {
		return 0, fmt.Errorf("no reference set configured")
	}
	canon := Canonicalize(smiles)
	if len(canon) == 0 {
		return 0, fmt.Errorf("population has no parseable molecules")
	}

	novel := 0
	for _, s := range canon {
		if _, ok := m.refset[s]; !ok {
			novel++
		}
	}
	return float64(novel) / float64(len(canon)), nil
}
