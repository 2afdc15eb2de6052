package table

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Cell.
type Kind uint8

const (
	Empty Kind = iota
	Text
	Number
	Date
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind   Kind
	Text   string
	Number decimal.Decimal
	Date   time.Time
}

func EmptyCell() Cell {
	return Cell{Kind: Empty}
}

func TextCell(s string) Cell {
	return Cell{Kind: Text, Text: s}
}

func NumberCell(d decimal.Decimal) Cell {
	return Cell{Kind: Number, Number: d}
}

func DateCell(t time.Time) Cell {
	return Cell{Kind: Date, Date: t}
}

const (
	maxIntegerDigits = 20
	minExponent      = -30
	// 50 decimal digits fit in 167 bits.
	maxCoefficientBits = 167
)

// SaneNumber reports whether d has at most 20 integer digits and 30 fractional
// digits. Numbers outside that range are not read as numbers.
func SaneNumber(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	if exp < minExponent || exp > maxIntegerDigits {
		return false
	}
	if d.Coefficient().BitLen() > maxCoefficientBits {
		return false
	}
	return d.NumDigits()+exp <= maxIntegerDigits
}

// IsBlank reports whether the cell carries no usable value: Empty, or Text that is
// only whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case Empty:
		return true
	case Text:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// Equal compares kind and the value of that kind.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case Text:
		return c.Text == o.Text
	case Number:
		return c.Number.Equal(o.Number)
	case Date:
		return c.Date.Equal(o.Date)
	default:
		return true
	}
}

func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return c.Number.String()
	case Date:
		return c.Date.Format("2006-01-02")
	default:
		return ""
	}
}
