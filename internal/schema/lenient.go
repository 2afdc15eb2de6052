package schema

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

// Excel serial bounds: 1900-01-01 through 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// dateLayouts are tried in order. Month-first wins for ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/1/2",
	"2006/1/2 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/06",
	"1-2-2006",
	"1.2.2006",
	"20060102",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Monday, January 2, 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// LenientDate interprets a cell as a calendar date at UTC midnight.
func LenientDate(c table.Cell) (time.Time, bool) {
	switch c.Kind {
	case table.Date:
		return calendarDate(c.Date), true
	case table.Number:
		return excelSerial(c.Number)
	case table.Text:
		s := strings.Join(strings.Fields(c.Text), " ")
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return calendarDate(t), true
			}
		}
	}
	return time.Time{}, false
}

func excelSerial(n decimal.Decimal) (time.Time, bool) {
	if !table.SaneNumber(n) {
		return time.Time{}, false
	}
	if n.LessThan(decimal.NewFromInt(minExcelSerial)) || n.GreaterThanOrEqual(decimal.NewFromInt(maxExcelSerial+1)) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(n.InexactFloat64(), false)
	if err != nil {
		return time.Time{}, false
	}
	return calendarDate(t), true
}

// calendarDate keeps the wall-clock date of t, whatever its zone.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LenientNumber interprets a cell as a number. Text may carry thousands
// separators, currency symbols and accounting parentheses for negatives.
// Numbers rejected by table.SaneNumber do not count.
func LenientNumber(c table.Cell) (decimal.Decimal, bool) {
	switch c.Kind {
	case table.Number:
		return c.Number, table.SaneNumber(c.Number)
	case table.Text:
		return parseNumberText(c.Text)
	}
	return decimal.Zero, false
}

func parseNumberText(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !table.SaneNumber(d) {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// maxDecimalIntegral is the first value that no longer fits 10 integer digits.
var maxDecimalIntegral = decimal.New(1, 10)

// coerceDecimal returns the money form of a cell: two decimal places, at most
// ten integer digits.
func coerceDecimal(c table.Cell) table.Cell {
	d, ok := LenientNumber(c)
	if !ok {
		return table.EmptyCell()
	}
	d = d.Round(2)
	if d.Abs().GreaterThanOrEqual(maxDecimalIntegral) {
		return table.EmptyCell()
	}
	return table.NumberCell(d)
}

func coerceFloat(c table.Cell) table.Cell {
	d, ok := LenientNumber(c)
	if !ok {
		return table.EmptyCell()
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return table.EmptyCell()
	}
	return table.NumberCell(decimal.NewFromFloat(f))
}

func coerceDate(c table.Cell) table.Cell {
	t, ok := LenientDate(c)
	if !ok {
		return table.EmptyCell()
	}
	return table.DateCell(t)
}

func coerceString(c table.Cell) table.Cell {
	switch c.Kind {
	case table.Empty:
		return table.TextCell("")
	case table.Text:
		return table.TextCell(strings.TrimSpace(c.Text))
	default:
		return table.TextCell(c.String())
	}
}
