package parser

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/go-faster/errors"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

// readXLS reads the first sheet of a legacy BIFF workbook. The library returns
// every cell as formatted text, so all values arrive as Text.
func readXLS(data []byte) (tbl *table.Table, err error) {
	// the BIFF reader panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			tbl, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return table.New(), nil
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		values := make([]string, row.LastCol())
		for c := range values {
			values[c] = row.Col(c)
		}
		if tbl == nil {
			tbl = headerTable(values)
			continue
		}
		if blankRow(values) {
			continue
		}
		cells := make([]table.Cell, len(values))
		for c, v := range values {
			cells[c] = textCell(v)
		}
		tbl.Append(cells...)
	}

	if tbl == nil {
		return table.New(), nil
	}
	return tbl, nil
}
