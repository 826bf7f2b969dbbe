// Package spreadsheet reads uploaded grade sheets (CSV or Excel) into
// header-keyed rows and writes the matching upload templates.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for file extensions other than .csv, .xlsx and .xls.
	ErrUnsupportedFormat = errors.New("only CSV and Excel files are supported")
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("parse error")
)

// ParseError carries a user-facing reason why a file could not be read.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func parseErr(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// Kind is the container format of an upload.
type Kind int

const (
	KindUnknown Kind = iota
	KindCSV
	KindExcel
)

// DetectKind classifies a filename by extension, case-insensitively.
func DetectKind(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return KindCSV
	case ".xlsx", ".xls":
		return KindExcel
	}
	return KindUnknown
}

// Table is a parsed sheet. Rows are keyed by header name; a cell missing
// from a short row is absent from its map rather than empty.
type Table struct {
	Header []string
	Rows   []map[string]string
}

// MissingColumns returns the entries of required not present in the header, in order.
func (t *Table) MissingColumns(required ...string) []string {
	have := make(map[string]struct{}, len(t.Header))
	for _, h := range t.Header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Parse reads r according to the extension of filename.
func Parse(filename string, r io.Reader) (*Table, error) {
	switch DetectKind(filename) {
	case KindCSV:
		return parseCSV(r)
	case KindExcel:
		return parseExcel(r)
	}
	return nil, ErrUnsupportedFormat
}

func parseCSV(r io.Reader) (*Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !utf8.Valid(content) {
		return nil, parseErr("File encoding error: Please ensure your CSV file uses UTF-8 encoding")
	}
	content = bytes.TrimPrefix(content, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(content))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, parseErr("Invalid CSV format: %v", err)
	}
	if len(records) == 0 {
		return nil, parseErr("Invalid CSV format: could not detect column headers")
	}
	return buildTable(records[0], records[1:]), nil
}

func parseExcel(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, parseErr("The file is not a valid Excel file")
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, parseErr("Excel file is empty or missing data rows")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, parseErr("Excel parsing error: %v", err)
	}
	if len(rows) < 2 {
		return nil, parseErr("Excel file is empty or missing data rows")
	}
	return buildTable(rows[0], rows[1:]), nil
}

func buildTable(header []string, records [][]string) *Table {
	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}

	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
