package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/table"
)

var errNotUTF8 = errors.New("file is not valid UTF-8 text")

func readCSV(data []byte) (*table.Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// empty file: no columns, no rows
			return table.New(), nil
		}
		return nil, errors.Wrap(err, "read header")
	}

	tbl := headerTable(header)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}

		cells := make([]table.Cell, len(record))
		for i, v := range record {
			cells[i] = textCell(v)
		}
		tbl.Append(cells...)
	}

	return tbl, nil
}

// decodeText turns the upload into UTF-8, honoring a UTF-8 or UTF-16 byte order
// mark. Input without a UTF-16 BOM must already be valid UTF-8.
func decodeText(data []byte) ([]byte, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return nil, errNotUTF8
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, errors.Wrap(err, "decode text")
	}
	return out, nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

// detectDelimiter picks the most frequent of comma, semicolon and tab on the
// header line. Comma wins ties.
func detectDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, r := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(r))); n > bestCount {
			best, bestCount = r, n
		}
	}
	return best
}
