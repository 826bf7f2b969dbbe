package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// TemplateFormat selects the upload template container.
type TemplateFormat string

const (
	TemplateCSV   TemplateFormat = "csv"
	TemplateExcel TemplateFormat = "excel"
)

// Columns is the header every grade upload must carry.
var Columns = []string{"student_id", "subject", "grade"}

// Filename is the download name for a template.
func (f TemplateFormat) Filename() string {
	if f == TemplateExcel {
		return "grade_upload_template.xlsx"
	}
	return "grade_upload_template.csv"
}

// ContentType is the MIME type for a template.
func (f TemplateFormat) ContentType() string {
	if f == TemplateExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// SampleRows returns the example rows of a template for the given grade range.
func SampleRows(min, max int) [][]string {
	return [][]string{
		{"1", fmt.Sprintf("Math (Range: %d-%d)", min, max), strconv.Itoa(minInt(95, max))},
		{"2", "Science", strconv.Itoa(minInt(87, max))},
		{"3", "History", strconv.Itoa(minInt(78, max))},
	}
}

// WriteTemplate writes a header plus sample rows in the requested format.
func WriteTemplate(w io.Writer, format TemplateFormat, min, max int) error {
	rows := append([][]string{Columns}, SampleRows(min, max)...)

	if format != TemplateExcel {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write csv template: %w", err)
		}
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write excel template: %w", err)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
