// Package source streams tabular files as rows of field name to raw string.
package source

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Row is one record. A nil value is null.
type Row = map[string]*string

// Format is a supported file format.
type Format string

// Supported formats.
const (
	CSV       Format = "csv"
	TSV       Format = "tsv"
	JSONL     Format = "jsonl"
	JSONLZstd Format = "jsonl.zst"
	Parquet   Format = "parquet"
)

// DetectFormat picks a format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".jsonl.zst"), strings.HasSuffix(n, ".json.zst"), strings.HasSuffix(n, ".ndjson.zst"):
		return JSONLZstd, nil
	case strings.HasSuffix(n, ".jsonl"), strings.HasSuffix(n, ".ndjson"), strings.HasSuffix(n, ".json"):
		return JSONL, nil
	case strings.HasSuffix(n, ".csv"), strings.HasSuffix(n, ".txt"):
		return CSV, nil
	case strings.HasSuffix(n, ".tsv"), strings.HasSuffix(n, ".tab"):
		return TSV, nil
	case strings.HasSuffix(n, ".parquet"):
		return Parquet, nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(name), domain.ErrUnsupportedSource)
}

// Source is a re-readable tabular file. Every call to Rows opens the file
// afresh, so a source can be sampled and then streamed in full.
type Source struct {
	path   string
	name   string
	format Format
}

// Open validates that path exists and has a supported format.
// name is the display name; it defaults to the base of path.
func Open(path, name string) (Source, error) {
	format, err := DetectFormat(nameOr(name, path))
	if err != nil {
		return Source{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.IsDir() {
		return Source{}, fmt.Errorf("%s is a directory: %w", path, domain.ErrUnsupportedSource)
	}
	return Source{path: path, name: nameOr(name, filepath.Base(path)), format: format}, nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// Name returns the display name.
func (s Source) Name() string { return s.name }

// Format returns the detected format.
func (s Source) Format() Format { return s.format }

// Rows streams every row. A failure to open or decode the file is yielded
// once and ends the sequence; a malformed record is yielded as an error and
// iteration continues.
func (s Source) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		f, err := os.Open(filepath.Clean(s.path))
		if err != nil {
			yield(nil, fmt.Errorf("open %s: %w", s.name, err))
			return
		}
		defer func() { _ = f.Close() }()

		var rows iter.Seq2[Row, error]
		switch s.format {
		case CSV:
			rows = delimitedRows(f, ',')
		case TSV:
			rows = delimitedRows(f, '\t')
		case JSONL:
			rows = jsonLines(f)
		case JSONLZstd:
			rows = zstdJSONLines(f)
		case Parquet:
			rows = parquetRows(f)
		default:
			yield(nil, fmt.Errorf("%s: %w", s.name, domain.ErrUnsupportedSource))
			return
		}

		for row, err := range rows {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
			if !yield(row, err) {
				return
			}
		}
	}
}

// Sample returns up to n rows. Malformed records are skipped; an error that
// ends the sequence before any row was read is returned.
func (s Source) Sample(ctx context.Context, n int) ([]Row, error) {
	out := make([]Row, 0, n)
	var lastErr error
	for row, err := range s.Rows(ctx) {
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		out = append(out, row)
		if len(out) >= n {
			break
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func strPtr(s string) *string { return &s }
