package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	scoreSheet  = "Score"
	reasonSheet = "Reason"
)

// XLSXWriter writes a workbook with a score sheet and a reason sheet
type XLSXWriter struct{}

// Write implements Writer
func (XLSXWriter) Write(path string, t *Table, names Names) error {
	f := excelize.NewFile()
	defer f.Close()

	// 기본 시트 이름을 점수 시트로 사용
	if err := f.SetSheetName("Sheet1", scoreSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(reasonSheet); err != nil {
		return fmt.Errorf("create reason sheet: %w", err)
	}

	if err := writeScoreSheet(f, t, names); err != nil {
		return err
	}
	if err := writeReasonSheet(f, t, names); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func writeScoreSheet(f *excelize.File, t *Table, names Names) error {
	if err := setRow(f, scoreSheet, 1, toCells(scoreHeader(t, names))); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := []interface{}{row.Securities, names.Security(row.Securities)}
		for _, a := range t.Analyzers {
			if c, ok := row.Cells[a]; ok {
				cells = append(cells, c.Score)
			} else {
				cells = append(cells, nil)
			}
		}
		if total := row.Total(); total >= 0 {
			cells = append(cells, total)
		} else {
			cells = append(cells, nil)
		}

		if err := setRow(f, scoreSheet, i+2, cells); err != nil {
			return err
		}
	}

	return f.SetPanes(scoreSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	})
}

func writeReasonSheet(f *excelize.File, t *Table, names Names) error {
	header := []string{"Code", "Name"}
	for _, a := range t.Analyzers {
		header = append(header, names.Analyzer(a))
	}
	if err := setRow(f, reasonSheet, 1, toCells(header)); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := []interface{}{row.Securities, names.Security(row.Securities)}
		for _, a := range t.Analyzers {
			cells = append(cells, row.Cells[a].Reason)
		}
		if err := setRow(f, reasonSheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
