package report

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVWriter writes the score sheet as CSV
type CSVWriter struct{}

// Write implements Writer
func (CSVWriter) Write(path string, t *Table, names Names) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(scoreHeader(t, names)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(scoreRecord(t, names, row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
