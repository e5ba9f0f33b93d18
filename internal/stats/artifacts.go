package stats

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"molgen/internal/model"
)

// MoleculeLog streams per-episode molecule rows to molecules.csv as they
// arrive, so a crashed run still leaves raw data behind.
type MoleculeLog struct {
	file    *os.File
	writer  *CSVWriter
	columns []string
}

// NewMoleculeLog opens path with the schema episode,smiles plus the value
// columns in declared order.
func NewMoleculeLog(path string, valueColumns []string) (*MoleculeLog, error) {
	if len(valueColumns) == 0 {
		return nil, fmt.Errorf("at least one value column is required")
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create molecule log: %w", err)
	}
	columns := append([]string{"episode", "smiles"}, valueColumns...)
	writer, err := NewCSVWriter(file, columns)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &MoleculeLog{file: file, writer: writer, columns: valueColumns}, nil
}

// Append writes one episode record. Missing values render as empty cells,
// matching the dropna aggregation downstream.
func (l *MoleculeLog) Append(rec model.MoleculeRecord) error {
	fields := map[string]string{
		"episode": strconv.Itoa(rec.Episode),
		"smiles":  rec.SMILES,
	}
	for _, col := range l.columns {
		v, ok := rec.Values[col]
		if !ok || math.IsNaN(v) {
			fields[col] = ""
			continue
		}
		fields[col] = FormatFloat(v)
	}
	if err := l.writer.WriteRow(fields); err != nil {
		return err
	}
	return l.writer.Flush()
}

func (l *MoleculeLog) Close() error {
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// WriteSummary writes the one-row aggregate summary with columns in the
// given order.
func WriteSummary(path string, columns []string, fields map[string]string) error {
	if len(columns) == 0 {
		return fmt.Errorf("no summary columns to write")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer file.Close()

	writer, err := NewCSVWriter(file, columns)
	if err != nil {
		return err
	}
	if err := writer.WriteRow(fields); err != nil {
		return err
	}
	return writer.Flush()
}

// SortedKeys returns map keys in lexical order, the order summary metric
// columns appear in.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteBestMolecule writes the single highest-scoring valid record.
func WriteBestMolecule(path string, valueColumns []string, rec model.MoleculeRecord) error {
	if !rec.Valid(valueColumns) {
		return fmt.Errorf("best molecule record is not valid")
	}
	log, err := NewMoleculeLog(path, valueColumns)
	if err != nil {
		return err
	}
	if err := log.Append(rec); err != nil {
		log.Close()
		return err
	}
	return log.Close()
}

// WriteTopMolecules writes ranked records as rank,score,smiles rows.
func WriteTopMolecules(path string, records []model.TopMoleculeRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no top molecules to write")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create top molecules file: %w", err)
	}
	defer file.Close()

	writer, err := NewCSVWriter(file, []string{"rank", "score", "smiles"})
	if err != nil {
		return err
	}
	for _, rec := range records {
		err := writer.WriteRow(map[string]string{
			"rank":   strconv.Itoa(rec.Rank),
			"score":  FormatFloat(rec.Score),
			"smiles": rec.Molecule.SMILES,
		})
		if err != nil {
			return err
		}
	}
	return writer.Flush()
}
