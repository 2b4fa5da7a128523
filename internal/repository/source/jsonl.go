package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/klauspost/compress/zstd"
)

// maxLine bounds one JSON line.
const maxLine = 16 << 20

// jsonLines reads one JSON object per line. Scalars keep their textual form,
// nested values are kept as JSON text and null becomes nil.
func jsonLines(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		line := 0
		for sc.Scan() {
			line++
			b := bytes.TrimSpace(sc.Bytes())
			if len(b) == 0 {
				continue
			}
			row, err := decodeLine(b)
			if err != nil {
				if !yield(nil, fmt.Errorf("line %d: %w", line, err)) {
					return
				}
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, fmt.Errorf("scan: %w", err))
		}
	}
}

// zstdJSONLines decompresses a zstd stream of JSON lines.
func zstdJSONLines(r io.Reader) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			yield(nil, fmt.Errorf("zstd reader: %w", err))
			return
		}
		defer dec.Close()

		for row, err := range jsonLines(dec) {
			if !yield(row, err) {
				return
			}
		}
	}
}

func decodeLine(b []byte) (Row, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	row := make(Row, len(obj))
	for k, raw := range obj {
		row[k] = rawValue(raw)
	}
	return row, nil
}

func rawValue(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strPtr(s)
		}
	}
	return strPtr(string(raw))
}
