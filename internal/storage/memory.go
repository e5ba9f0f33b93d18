package storage

import (
	"context"
	"errors"
	"sync"

	"molgen/internal/model"
)

// MemoryStore keeps run records in process memory. Values round-trip
// through the codec so the behavior matches the durable backend.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	summaries   map[string][]byte
	top         map[string][]byte
	molecules   map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	s.summaries = make(map[string][]byte)
	s.top = make(map[string][]byte)
	s.molecules = make(map[string][]byte)
	s.initialized = true
	return nil
}

func (s *MemoryStore) SaveRunSummary(ctx context.Context, summary model.RunSummary) error {
	payload, err := EncodeRunSummary(summary)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.summaries[summary.RunID] = payload
	return nil
}

func (s *MemoryStore) GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return model.RunSummary{}, false, errors.New("store is not initialized")
	}
	payload, ok := s.summaries[runID]
	if !ok {
		return model.RunSummary{}, false, nil
	}
	summary, err := DecodeRunSummary(payload)
	if err != nil {
		return model.RunSummary{}, false, err
	}
	return summary, true, nil
}

func (s *MemoryStore) SaveTopMolecules(ctx context.Context, runID string, top []model.TopMoleculeRecord) error {
	payload, err := EncodeTopMolecules(top)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.top[runID] = payload
	return nil
}

func (s *MemoryStore) GetTopMolecules(ctx context.Context, runID string) ([]model.TopMoleculeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, false, errors.New("store is not initialized")
	}
	payload, ok := s.top[runID]
	if !ok {
		return nil, false, nil
	}
	records, err := DecodeTopMolecules(payload)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (s *MemoryStore) SaveMolecules(ctx context.Context, runID string, molecules []model.MoleculeRecord) error {
	payload, err := EncodeMolecules(molecules)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.molecules[runID] = payload
	return nil
}

func (s *MemoryStore) GetMolecules(ctx context.Context, runID string) ([]model.MoleculeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, false, errors.New("store is not initialized")
	}
	payload, ok := s.molecules[runID]
	if !ok {
		return nil, false, nil
	}
	records, err := DecodeMolecules(payload)
	if err != nil {
		return nil, false, err
	}
	return records, true, nil
}
