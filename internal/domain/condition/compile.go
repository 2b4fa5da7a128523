package condition

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

var (
	errNoField = errors.New("field is required")
	errNoValue = errors.New("value is required")
)

// Compile translates one condition into exactly one query node. A condition
// that cannot be compiled degrades to match_all.
func Compile(c Condition) query.Query {
	q, err := CompileStrict(c)
	if err != nil {
		return query.MatchAll{}
	}
	return q
}

// CompileStrict is Compile without the match_all fallback.
func CompileStrict(c Condition) (query.Query, error) {
	if c.Group != nil {
		return CompileGroup(*c.Group, ""), nil
	}

	field := strings.TrimSpace(c.Field)
	op := c.Op.normalize()

	switch op {
	case OpEq, OpTerm:
		if field == "" {
			return nil, wrapErr(op, errNoField)
		}
		if c.Value == nil {
			return nil, wrapErr(op, errNoValue)
		}
		return query.Term{Field: field, Value: c.Value}, nil

	case OpIn, OpTerms:
		if field == "" {
			return nil, wrapErr(op, errNoField)
		}
		values, err := listValues(c)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		return query.Terms{Field: field, Values: values}, nil

	case OpMatch, OpPhrase, OpContains, OpWildcard, OpPrefix:
		if field == "" {
			return nil, wrapErr(op, errNoField)
		}
		text, err := textValue(c.Value)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		return textLeaf(op, field, text), nil

	case OpRange, OpGT, OpGTE, OpLT, OpLTE:
		if field == "" {
			return nil, wrapErr(op, errNoField)
		}
		r := rangeLeaf(op, field, c)
		if r.IsOpen() {
			return nil, wrapErr(op, errors.New("at least one bound is required"))
		}
		return r, nil

	case OpExists, OpMissing:
		if field == "" {
			return nil, wrapErr(op, errNoField)
		}
		if op == OpMissing {
			return query.Not(query.Exists{Field: field}), nil
		}
		return query.Exists{Field: field}, nil

	default:
		if field == "" {
			return query.MatchAll{}, nil
		}
		text, err := textValue(c.Value)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		return query.QueryString{Field: field, Text: text}, nil
	}
}

// CompileGroup translates a group into a bool query. A non-empty text is
// prepended to must as a free-text clause. An empty result is match_all.
func CompileGroup(g Group, text string) query.Query {
	var b query.Bool
	if t := strings.TrimSpace(text); t != "" {
		b.Must = append(b.Must, query.QueryString{Text: t})
	}
	b.Must = append(b.Must, compileAll(g.All)...)
	b.Should = compileAll(g.Any)
	b.MustNot = compileAll(g.None)
	b.Filter = compileAll(g.Filters)
	if len(b.Should) > 0 {
		b.MinimumShouldMatch = 1
	}
	if b.IsEmpty() {
		return query.MatchAll{}
	}
	return b
}

func compileAll(conds []Condition) []query.Query {
	if len(conds) == 0 {
		return nil
	}
	out := make([]query.Query, 0, len(conds))
	for i := range conds {
		out = append(out, Compile(conds[i]))
	}
	return out
}

func textLeaf(op Op, field, text string) query.Query {
	switch op {
	case OpMatch:
		return query.Match{Field: field, Text: text}
	case OpPhrase:
		return query.MatchPhrase{Field: field, Text: text}
	case OpPrefix:
		return query.Prefix{Field: field, Prefix: text}
	default:
		if !strings.ContainsAny(text, "*?") {
			text = "*" + text + "*"
		}
		return query.Wildcard{Field: field, Pattern: text}
	}
}

func rangeLeaf(op Op, field string, c Condition) query.Range {
	r := query.Range{Field: field, GT: c.GT, GTE: c.GTE, LT: c.LT, LTE: c.LTE}
	if c.Value == nil {
		return r
	}
	switch op {
	case OpGT:
		r.GT = c.Value
	case OpGTE:
		r.GTE = c.Value
	case OpLT:
		r.LT = c.Value
	case OpLTE:
		r.LTE = c.Value
	}
	return r
}

func listValues(c Condition) ([]any, error) {
	if len(c.Values) > 0 {
		return c.Values, nil
	}
	if c.Value == nil {
		return nil, errNoValue
	}
	rv := reflect.ValueOf(c.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{c.Value}, nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	if len(out) == 0 {
		return nil, errNoValue
	}
	return out, nil
}

func textValue(v any) (string, error) {
	if v == nil {
		return "", errNoValue
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("value is not a scalar: %w", err)
	}
	return s, nil
}

func wrapErr(op Op, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidCondition, err)
}
