package parser

import (
	"bytes"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

func readXLSX(data []byte) (*table.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return table.New(), nil
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	if len(rows) == 0 {
		return table.New(), nil
	}

	tbl := headerTable(rows[0])
	styles := &dateStyles{f: f, known: make(map[int]bool)}
	for r := 1; r < len(rows); r++ {
		if blankRow(rows[r]) {
			continue
		}
		cells := make([]table.Cell, len(rows[r]))
		for c, raw := range rows[r] {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, errors.Wrap(err, "cell name")
			}
			cells[c] = xlsxCell(f, sheet, axis, raw, styles)
		}
		tbl.Append(cells...)
	}
	return tbl, nil
}

// xlsxCell types a raw cell value: strings stay Text, numbers become Number,
// numbers carrying a date number format become Date.
func xlsxCell(f *excelize.File, sheet, axis, raw string, styles *dateStyles) table.Cell {
	if raw == "" {
		return table.EmptyCell()
	}

	typ, err := f.GetCellType(sheet, axis)
	if err == nil {
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
			return table.TextCell(raw)
		}
	}

	n, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !table.SaneNumber(n) {
		return table.TextCell(raw)
	}
	if styles.isDate(sheet, axis) {
		if t, err := excelize.ExcelDateToTime(n.InexactFloat64(), false); err == nil {
			return table.DateCell(t)
		}
	}
	return table.NumberCell(n)
}

type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (d *dateStyles) isDate(sheet, axis string) bool {
	idx, err := d.f.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	if v, ok := d.known[idx]; ok {
		return v
	}
	style, err := d.f.GetStyle(idx)
	v := err == nil && style != nil && isDateFormat(style.NumFmt, style.CustomNumFmt)
	d.known[idx] = v
	return v
}

// isDateFormat reports whether a number format renders a calendar date. Built-in
// ids follow ECMA-376 18.8.30; custom formats count as dates when they carry a
// year or day token outside quoted literals and bracketed sections.
func isDateFormat(id int, custom *string) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	if custom == nil {
		return false
	}
	var (
		inQuote   bool
		inBracket bool
	)
	for _, r := range strings.ToLower(*custom) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y' || r == 'd':
			return true
		}
	}
	return false
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
