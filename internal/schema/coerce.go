package schema

import (
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

// Coerce turns a normalized table into the clean form of spec: exactly the spec
// fields in spec order, typed per field kind, and only rows whose required field
// holds a value. Cells that fail to parse become Empty; Coerce itself never fails.
// Running it on its own output returns an equal table.
func Coerce(tbl *table.Table, spec *RecordSpec) *table.Table {
	// missing fields come out as all-Empty columns
	out := tbl.Project(spec.FieldNames())

	out.Filter(func(i int) bool {
		return !out.Get(i, spec.Required).IsBlank()
	})

	for i := 0; i < out.Len(); i++ {
		for _, field := range spec.Fields {
			out.Set(i, field.Name, coerceCell(field.Kind, out.Get(i, field.Name)))
		}
	}

	out.Filter(func(i int) bool {
		return !out.Get(i, spec.Required).IsBlank()
	})
	return out
}

func coerceCell(kind FieldKind, c table.Cell) table.Cell {
	switch kind {
	case KindDate:
		return coerceDate(c)
	case KindDecimal:
		return coerceDecimal(c)
	case KindFloat:
		return coerceFloat(c)
	default:
		return coerceString(c)
	}
}

// Clean runs Normalize then Coerce.
func Clean(tbl *table.Table, spec *RecordSpec) *table.Table {
	return Coerce(Normalize(tbl, spec), spec)
}
