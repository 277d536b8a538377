package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFWriter writes the score sheet as a landscape A4 table.
// Core fonts are Latin-1 only, so columns use ids rather than display names.
type PDFWriter struct{}

// Write implements Writer
func (PDFWriter) Write(path string, t *Table, _ Names) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Analysis Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	header := append([]string{"Code"}, t.Analyzers...)
	header = append(header, "Total")
	colWidth := pdfColumnWidth(len(header))

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range header {
			pdf.CellFormat(colWidth, 6, latin1(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	writeHeader()

	// A4 landscape height minus bottom margin
	pageBottom := 210.0 - 15.0
	for _, row := range t.Rows {
		if pdf.GetY()+6 > pageBottom {
			pdf.AddPage()
			writeHeader()
		}

		record := scoreRecord(t, Names{}, row)
		// drop the name column
		record = append(record[:1], record[2:]...)
		for i, v := range record {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(colWidth, 6, latin1(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pdfColumnWidth(cols int) float64 {
	const usable = 277.0 // 297 - margins
	w := usable / float64(cols)
	if w > 40 {
		return 40
	}
	return w
}

// latin1 replaces characters the core fonts cannot render
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFF {
			return '?'
		}
		return r
	}, s)
}
