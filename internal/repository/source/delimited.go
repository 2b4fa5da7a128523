package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// delimitedRows reads a header line then one row per record. Empty cells
// and cells missing from short records are null; extra cells are dropped.
func delimitedRows(r io.Reader, comma rune) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		cr := csv.NewReader(r)
		cr.Comma = comma
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		cr.ReuseRecord = true

		header, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			yield(nil, fmt.Errorf("read header: %w", err))
			return
		}
		cols := make([]string, len(header))
		for i, h := range header {
			cols[i] = strings.TrimSpace(h)
		}
		if len(cols) > 0 {
			cols[0] = strings.TrimPrefix(cols[0], "\ufeff")
		}

		for {
			rec, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					if !yield(nil, fmt.Errorf("line %d: %w", perr.Line, err)) {
						return
					}
					continue
				}
				yield(nil, err)
				return
			}

			row := make(Row, len(cols))
			for i, c := range cols {
				if c == "" {
					continue
				}
				if i >= len(rec) || rec[i] == "" {
					row[c] = nil
					continue
				}
				row[c] = strPtr(rec[i])
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
