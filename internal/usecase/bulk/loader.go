// Package bulk streams documents into a collection in fixed-size chunks.
package bulk

import (
	"context"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docdex/internal/domain/document"
	"github.com/kailas-cloud/docdex/internal/domain/job"
	"github.com/kailas-cloud/docdex/internal/logger"
)

// DefaultChunkSize is the number of documents per backend call.
const DefaultChunkSize = 500

// Stats is the outcome of one load.
type Stats struct {
	OK     int
	Errors int
	// Samples holds the first few error messages.
	Samples []string
}

func (s *Stats) fail(n int, err error) {
	s.Errors += n
	if len(s.Samples) < job.MaxErrorSamples {
		s.Samples = append(s.Samples, err.Error())
	}
}

// Loader streams documents through a Writer.
type Loader struct {
	w         Writer
	chunkSize int
	rows      *prometheus.CounterVec
}

// New creates a Loader. Non-positive chunkSize falls back to DefaultChunkSize.
func New(w Writer, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{w: w, chunkSize: chunkSize}
}

// WithMetrics counts loaded and failed rows on cv, labeled by result.
func (l *Loader) WithMetrics(cv *prometheus.CounterVec) *Loader {
	l.rows = cv
	return l
}

// Load reads items lazily and writes them in chunks of chunkSize (the loader
// default when non-positive). At most one chunk is held in memory. Failed
// items, failed chunks and source errors are counted and never stop the
// load; only context cancellation does, returning the stats so far.
func (l *Loader) Load(
	ctx context.Context, collection string, items iter.Seq2[domdoc.Document, error], chunkSize int,
) (Stats, error) {
	if chunkSize <= 0 {
		chunkSize = l.chunkSize
	}
	log := logger.FromContext(ctx).With(zap.String("collection", collection))

	var st Stats
	buf := make([]domdoc.Document, 0, chunkSize)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		ok, failed := l.send(ctx, collection, buf, &st)
		log.Debug("chunk written", zap.Int("ok", ok), zap.Int("errors", failed))
		buf = buf[:0]
	}

	for doc, err := range items {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			st.fail(1, err)
			l.observe("error", 1)
			continue
		}
		buf = append(buf, doc)
		if len(buf) >= chunkSize {
			flush()
		}
	}
	if err := ctx.Err(); err != nil {
		return st, fmt.Errorf("load %s: %w", collection, err)
	}
	flush()
	return st, nil
}

func (l *Loader) send(ctx context.Context, collection string, docs []domdoc.Document, st *Stats) (int, int) {
	results, err := l.w.Bulk(ctx, collection, docs)
	if err != nil {
		st.fail(len(docs), fmt.Errorf("chunk of %d: %w", len(docs), err))
		l.observe("error", len(docs))
		return 0, len(docs)
	}

	ok, failed := 0, 0
	for _, r := range results {
		if r.Status() == batch.StatusOK {
			ok++
			continue
		}
		failed++
		itemErr := r.Err()
		if itemErr == nil {
			itemErr = fmt.Errorf("rejected")
		}
		st.fail(1, fmt.Errorf("document %q: %w", r.ID(), itemErr))
	}
	// a short result set means the backend dropped items silently
	if missing := len(docs) - len(results); missing > 0 {
		failed += missing
		st.fail(missing, fmt.Errorf("%d documents without a result", missing))
	}
	st.OK += ok
	l.observe("ok", ok)
	l.observe("error", failed)
	return ok, failed
}

func (l *Loader) observe(result string, n int) {
	if l.rows == nil || n == 0 {
		return
	}
	l.rows.WithLabelValues(result).Add(float64(n))
}
