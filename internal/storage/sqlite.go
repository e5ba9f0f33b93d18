//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"molgen/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRunSummary(ctx context.Context, summary model.RunSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRunSummary(summary)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO run_summaries (run_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, summary.RunID, summary.SchemaVersion, summary.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunSummary{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM run_summaries WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunSummary{}, false, nil
		}
		return model.RunSummary{}, false, err
	}

	summary, err := DecodeRunSummary(payload)
	if err != nil {
		return model.RunSummary{}, false, fmt.Errorf("decode run summary %s: %w", runID, err)
	}
	return summary, true, nil
}

func (s *SQLiteStore) SaveTopMolecules(ctx context.Context, runID string, top []model.TopMoleculeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeTopMolecules(top)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO top_molecules (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) GetTopMolecules(ctx context.Context, runID string) ([]model.TopMoleculeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM top_molecules WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	records, err := DecodeTopMolecules(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode top molecules %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *SQLiteStore) SaveMolecules(ctx context.Context, runID string, molecules []model.MoleculeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeMolecules(molecules)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO molecules (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) GetMolecules(ctx context.Context, runID string) ([]model.MoleculeRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM molecules WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	records, err := DecodeMolecules(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode molecules %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_summaries (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS top_molecules (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS molecules (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
