package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned for output paths with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Writer renders a table to a file
type Writer interface {
	Write(path string, t *Table, names Names) error
}

// WriterFor picks a writer by the output file extension
func WriterFor(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return XLSXWriter{}, nil
	case ".csv":
		return CSVWriter{}, nil
	case ".pdf":
		return PDFWriter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// scoreHeader is the header row of the score sheet
func scoreHeader(t *Table, names Names) []string {
	header := []string{"Code", "Name"}
	for _, a := range t.Analyzers {
		header = append(header, names.Analyzer(a))
	}
	return append(header, "Total")
}

// scoreRecord renders one row of the score sheet; missing cells are blank
func scoreRecord(t *Table, names Names, row Row) []string {
	record := []string{row.Securities, names.Security(row.Securities)}
	for _, a := range t.Analyzers {
		c, ok := row.Cells[a]
		if !ok {
			record = append(record, "")
			continue
		}
		record = append(record, strconv.Itoa(c.Score))
	}

	total := row.Total()
	if total < 0 {
		return append(record, "")
	}
	return append(record, strconv.Itoa(total))
}
