package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

// UnsupportedFormatError is returned for files whose extension has no reader.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return "Unsupported file type (use .xlsx, .xls, or .csv)"
}

// ParseError wraps a decoding failure of a whole file.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse file: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Read parses an uploaded file into a table, picking the reader from the file
// name's extension. The first row of the file is the header.
func Read(name string, data []byte) (*table.Table, error) {
	var (
		tbl *table.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		tbl, err = readCSV(data)
	case ".xlsx":
		tbl, err = readXLSX(data)
	case ".xls":
		tbl, err = readXLS(data)
	default:
		return nil, &UnsupportedFormatError{Name: name}
	}
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}
	return tbl, nil
}

// headerTable builds an empty table from a raw header row.
func headerTable(header []string) *table.Table {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimPrefix(h, "\ufeff")
	}
	return table.New(cols...)
}

// textCell maps a raw string to Text, or Empty for the empty string.
func textCell(s string) table.Cell {
	if s == "" {
		return table.EmptyCell()
	}
	return table.TextCell(s)
}
