package schema

import (
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

// Normalize returns a copy of tbl with variant headers renamed to canonical field
// names. Fields are resolved in spec order and synonyms in priority order; the
// first synonym that matches an unclaimed column wins, and among columns matching
// the same synonym the left-most wins. Unmatched columns keep their names.
func Normalize(tbl *table.Table, spec *RecordSpec) *table.Table {
	out := tbl.Clone()
	headers := out.Columns()
	for i, h := range headers {
		headers[i] = table.NormalizeHeader(h)
	}

	claimed := make([]bool, len(headers))
	for _, field := range spec.Fields {
		if idx := matchField(headers, claimed, field.Synonyms); idx >= 0 {
			claimed[idx] = true
			out.RenameAt(idx, field.Name)
		}
	}
	return out
}

func matchField(headers []string, claimed []bool, synonyms []string) int {
	for _, syn := range synonyms {
		want := table.NormalizeHeader(syn)
		for i, h := range headers {
			if !claimed[i] && h == want {
				return i
			}
		}
	}
	return -1
}
