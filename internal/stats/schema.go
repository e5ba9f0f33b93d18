// Package stats writes the evaluation artifacts: row-oriented CSV files
// with a declared column schema, aggregate metric tables and the
// best-molecule record.
package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVWriter streams rows against a schema declared up front. Columns are
// fixed at construction; writing a row with an unknown or missing field
// fails instead of silently reshaping the file.
type CSVWriter struct {
	columns []string
	index   map[string]int
	w       *csv.Writer
	wrote   bool
}

func NewCSVWriter(w io.Writer, columns []string) (*CSVWriter, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("schema must declare at least one column")
	}
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[col]; dup {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		index[col] = i
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &CSVWriter{columns: columns, index: index, w: cw}, nil
}

// WriteRow writes one record. Every declared column must be present and
// no extra fields are allowed.
func (c *CSVWriter) WriteRow(fields map[string]string) error {
	if len(fields) != len(c.columns) {
		for name := range fields {
			if _, ok := c.index[name]; !ok {
				return fmt.Errorf("unknown field %q", name)
			}
		}
		for _, col := range c.columns {
			if _, ok := fields[col]; !ok {
				return fmt.Errorf("missing field %q", col)
			}
		}
	}

	row := make([]string, len(c.columns))
	for name, value := range fields {
		i, ok := c.index[name]
		if !ok {
			return fmt.Errorf("unknown field %q", name)
		}
		row[i] = value
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	c.wrote = true
	return nil
}

// Flush drains buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// Columns returns the declared schema.
func (c *CSVWriter) Columns() []string {
	return append([]string(nil), c.columns...)
}

// FormatFloat renders values the way all artifact files expect.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
