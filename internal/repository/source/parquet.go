package source

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// parquetRows reads every row group with the generic row reader. Leaf columns
// are named by their dotted path; repeated values are joined with commas.
func parquetRows(f *os.File) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		st, err := f.Stat()
		if err != nil {
			yield(nil, fmt.Errorf("stat: %w", err))
			return
		}
		pf, err := parquet.OpenFile(f, st.Size())
		if err != nil {
			yield(nil, fmt.Errorf("open parquet: %w", err))
			return
		}

		paths := pf.Schema().Columns()
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = columnName(p)
		}

		buf := make([]parquet.Row, 256)
		for _, rg := range pf.RowGroups() {
			rows := parquet.NewRowGroupReader(rg)
			for {
				n, readErr := rows.ReadRows(buf)
				for i := range n {
					if !yield(toRow(buf[i], names), nil) {
						return
					}
				}
				if readErr != nil {
					if errors.Is(readErr, io.EOF) {
						break
					}
					yield(nil, fmt.Errorf("read rows: %w", readErr))
					return
				}
			}
		}
	}
}

// columnName drops the list/element wrappers of nested list encodings.
func columnName(path []string) string {
	parts := make([]string, 0, len(path))
	for _, p := range path {
		if p == "list" || p == "element" || p == "item" {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 && len(path) > 0 {
		return path[0]
	}
	return strings.Join(parts, ".")
}

func toRow(pr parquet.Row, names []string) Row {
	vals := make(map[string][]string, len(names))
	row := make(Row, len(names))
	for _, v := range pr {
		col := v.Column()
		if col < 0 || col >= len(names) {
			continue
		}
		name := names[col]
		if _, ok := row[name]; !ok {
			row[name] = nil
		}
		if v.IsNull() {
			continue
		}
		vals[name] = append(vals[name], v.String())
	}
	for name, vs := range vals {
		row[name] = strPtr(strings.Join(vs, ","))
	}
	return row
}
