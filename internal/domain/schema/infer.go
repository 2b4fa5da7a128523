package schema

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
)

const (
	// DefaultMaxFields bounds the number of distinct fields tracked during inference.
	DefaultMaxFields = 200
	// maxKeywordLen is the longest space-free value still classified as keyword.
	maxKeywordLen = 64
)

// DateLayouts are tried in order when classifying a value as a date.
var DateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"1/2/2006",
	"2006-1-2 15:04:05",
}

// IsNullLiteral reports whether a raw value denotes an absent value.
func IsNullLiteral(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "null", "none", "nan":
		return true
	}
	return false
}

// InferType classifies a single raw value.
func InferType(value string) field.Type {
	v := strings.TrimSpace(value)
	if IsNullLiteral(v) {
		return field.Null
	}
	if _, err := strconv.ParseInt(v, 10, 64); err == nil {
		return field.Long
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return field.Float
	}
	if IsDate(v) {
		return field.Date
	}
	if len(v) <= maxKeywordLen && !strings.Contains(v, " ") {
		return field.Keyword
	}
	return field.Text
}

// IsDate reports whether v matches one of DateLayouts.
func IsDate(v string) bool {
	for _, layout := range DateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// Inferrer tallies value types per field across a sample.
// The zero value is not usable; create one with NewInferrer.
type Inferrer struct {
	maxFields int
	order     []string
	tallies   map[string]map[field.Type]int
}

// NewInferrer creates an Inferrer tracking at most maxFields distinct fields.
// Non-positive maxFields falls back to DefaultMaxFields.
func NewInferrer(maxFields int) *Inferrer {
	if maxFields <= 0 {
		maxFields = DefaultMaxFields
	}
	return &Inferrer{
		maxFields: maxFields,
		tallies:   make(map[string]map[field.Type]int),
	}
}

// Observe adds one sampled row. A nil value counts as null.
// Empty names and names starting with an underscore are skipped.
func (in *Inferrer) Observe(row map[string]*string) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if k == "" || strings.HasPrefix(k, "_") {
			continue
		}
		bucket, seen := in.tallies[k]
		if !seen {
			if len(in.tallies) >= in.maxFields {
				continue
			}
			bucket = make(map[field.Type]int, 2)
			in.tallies[k] = bucket
			in.order = append(in.order, k)
		}
		t := field.Null
		if v := row[k]; v != nil {
			t = InferType(*v)
		}
		bucket[t]++
	}
}

// Schema resolves the tallies into a Schema.
func (in *Inferrer) Schema() Schema {
	fields := make([]field.Field, 0, len(in.order))
	for _, k := range in.order {
		fields = append(fields, field.Reconstruct(k, resolve(in.tallies[k])))
	}
	return New(fields)
}

// Infer classifies every field observed in rows.
func Infer(rows []map[string]*string, maxFields int) Schema {
	in := NewInferrer(maxFields)
	for _, r := range rows {
		in.Observe(r)
	}
	return in.Schema()
}

func resolve(bucket map[field.Type]int) field.Type {
	var hasLong, hasFloat, hasDate, hasKeyword, hasOther bool
	for t, n := range bucket {
		if n == 0 {
			continue
		}
		switch t {
		case field.Null:
		case field.Long:
			hasLong = true
		case field.Float:
			hasFloat = true
		case field.Date:
			hasDate = true
		case field.Keyword:
			hasKeyword = true
		default:
			hasOther = true
		}
	}

	numeric := hasLong || hasFloat
	switch {
	case hasOther:
		return field.Text
	case hasDate && !numeric && !hasKeyword:
		return field.Date
	case numeric && !hasDate && !hasKeyword:
		if hasFloat {
			return field.Float
		}
		return field.Long
	case hasKeyword && !numeric && !hasDate:
		return field.Keyword
	default:
		// all-null lands here too
		return field.Text
	}
}
