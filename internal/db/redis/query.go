package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

// neverMatch is a clause no document satisfies. __id is always indexed.
const neverMatch = "@" + idAttr + ":{__docdex_none__}"

// translator compiles the query AST into RediSearch DIALECT 2 syntax for one collection.
type translator struct {
	l layout
	m mapping.Mapping
}

func buildQuery(l layout, m mapping.Mapping, q query.Query) string {
	if q == nil {
		return "*"
	}
	t := translator{l: l, m: m}
	if out := t.node(q); out != "" {
		return out
	}
	return "*"
}

func (t translator) node(q query.Query) string {
	switch n := q.(type) {
	case query.MatchAll:
		return "*"
	case query.Term:
		return t.term(n.Field, n.Value)
	case query.Terms:
		return t.terms(n)
	case query.Match:
		return t.match(n.Field, n.Text)
	case query.MatchPhrase:
		return t.phrase(n)
	case query.Wildcard:
		return t.wildcard(n)
	case query.Prefix:
		return t.prefix(n)
	case query.Range:
		return t.rangeClause(n)
	case query.Exists:
		alias, _, ok := t.field(n.Field)
		if !ok {
			return neverMatch
		}
		return "-ismissing(@" + alias + ")"
	case query.QueryString:
		return t.queryString(n)
	case query.Bool:
		return t.boolean(n)
	}
	return neverMatch
}

// field resolves a query field. "_id" addresses the document id.
func (t translator) field(name string) (string, field.Type, bool) {
	if name == "_id" {
		return idAttr, field.Keyword, true
	}
	return t.l.resolve(name)
}

func (t translator) term(name string, v any) string {
	alias, ft, ok := t.field(t.m.ExactField(name))
	if !ok {
		return neverMatch
	}
	return valueClause(alias, ft, v)
}

func valueClause(alias string, ft field.Type, v any) string {
	switch ft {
	case field.Long, field.Float:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return neverMatch
		}
		n := formatNumber(f)
		return fmt.Sprintf("@%s:[%s %s]", alias, n, n)
	case field.Date:
		ms, ok := mapping.EpochMillis(v)
		if !ok {
			return neverMatch
		}
		n := strconv.FormatInt(ms, 10)
		return fmt.Sprintf("@%s:[%s %s]", alias, n, n)
	case field.Keyword:
		return fmt.Sprintf("@%s:{%s}", alias, tagEscaper.Replace(cast.ToString(v)))
	default:
		return fmt.Sprintf("@%s:\"%s\"", alias, escapeQuery(cast.ToString(v)))
	}
}

func (t translator) terms(n query.Terms) string {
	if len(n.Values) == 0 {
		return neverMatch
	}
	alias, ft, ok := t.field(t.m.ExactField(n.Field))
	if !ok {
		return neverMatch
	}
	if ft == field.Keyword {
		vals := make([]string, len(n.Values))
		for i, v := range n.Values {
			vals[i] = tagEscaper.Replace(cast.ToString(v))
		}
		return fmt.Sprintf("@%s:{%s}", alias, strings.Join(vals, " | "))
	}
	parts := make([]string, len(n.Values))
	for i, v := range n.Values {
		parts[i] = valueClause(alias, ft, v)
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func (t translator) match(name, text string) string {
	alias, ft, ok := t.field(name)
	if !ok {
		return neverMatch
	}
	if ft != field.Text {
		return valueClause(alias, ft, text)
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return neverMatch
	}
	return fmt.Sprintf("@%s:(%s)", alias, strings.Join(tokens, "|"))
}

func (t translator) phrase(n query.MatchPhrase) string {
	alias, ft, ok := t.field(n.Field)
	if !ok {
		return neverMatch
	}
	return valueClause(alias, ft, n.Text)
}

func (t translator) wildcard(n query.Wildcard) string {
	alias, ft, ok := t.field(n.Field)
	if !ok {
		return neverMatch
	}
	pattern := strings.ReplaceAll(n.Pattern, "'", `\'`)
	switch ft {
	case field.Keyword:
		return fmt.Sprintf("@%s:{w'%s'}", alias, pattern)
	case field.Text:
		return fmt.Sprintf("@%s:(w'%s')", alias, strings.ToLower(pattern))
	}
	return neverMatch
}

func (t translator) prefix(n query.Prefix) string {
	alias, ft, ok := t.field(n.Field)
	if !ok || n.Prefix == "" {
		return neverMatch
	}
	switch ft {
	case field.Keyword:
		return fmt.Sprintf("@%s:{%s*}", alias, tagEscaper.Replace(n.Prefix))
	case field.Text:
		return fmt.Sprintf("@%s:(%s*)", alias, escapeQuery(strings.ToLower(n.Prefix)))
	}
	return neverMatch
}

func (t translator) rangeClause(n query.Range) string {
	alias, ft, ok := t.field(n.Field)
	if !ok {
		return neverMatch
	}
	if ft != field.Long && ft != field.Float && ft != field.Date {
		return neverMatch
	}

	conv := func(v any) (string, bool) {
		if ft == field.Date {
			ms, ok := mapping.EpochMillis(v)
			return strconv.FormatInt(ms, 10), ok
		}
		f, err := cast.ToFloat64E(v)
		return formatNumber(f), err == nil
	}

	lo, hi := "-inf", "+inf"
	var ok1 bool
	switch {
	case n.GT != nil:
		if lo, ok1 = conv(n.GT); !ok1 {
			return neverMatch
		}
		lo = "(" + lo
	case n.GTE != nil:
		if lo, ok1 = conv(n.GTE); !ok1 {
			return neverMatch
		}
	}
	switch {
	case n.LT != nil:
		if hi, ok1 = conv(n.LT); !ok1 {
			return neverMatch
		}
		hi = "(" + hi
	case n.LTE != nil:
		if hi, ok1 = conv(n.LTE); !ok1 {
			return neverMatch
		}
	}
	return fmt.Sprintf("@%s:[%s %s]", alias, lo, hi)
}

func (t translator) queryString(n query.QueryString) string {
	tokens := tokenize(n.Text)
	if len(tokens) == 0 {
		return "*"
	}
	body := "(" + strings.Join(tokens, "|") + ")"
	if n.Field == "" {
		return body
	}
	alias, ft, ok := t.field(n.Field)
	if !ok {
		return neverMatch
	}
	if ft != field.Text {
		return valueClause(alias, ft, n.Text)
	}
	return "@" + alias + ":" + body
}

func (t translator) boolean(b query.Bool) string {
	var parts []string
	for _, c := range b.Must {
		parts = append(parts, group(t.node(c)))
	}
	for _, c := range b.Filter {
		parts = append(parts, group(t.node(c)))
	}
	if len(b.Should) > 0 {
		alts := make([]string, len(b.Should))
		for i, c := range b.Should {
			alts[i] = group(t.node(c))
		}
		should := "(" + strings.Join(alts, " | ") + ")"
		if len(parts) > 0 && b.MinimumShouldMatch == 0 {
			should = "~" + should
		}
		parts = append(parts, should)
	}
	for _, c := range b.MustNot {
		parts = append(parts, negate(t.node(c)))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// group parenthesizes compound clauses so they bind as one operand.
func group(s string) string {
	if !compound(s) {
		return s
	}
	return "(" + s + ")"
}

func negate(s string) string {
	if strings.HasPrefix(s, "-") {
		return "-(" + s + ")"
	}
	return "-" + group(s)
}

// compound reports whether s has a space or union outside brackets, braces and quotes.
func compound(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			i++
		case '"', '[', '{':
			i = skipTo(s, i+1, closer[c])
		case '(':
			depth++
		case ')':
			depth--
		case ' ', '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

var closer = map[byte]byte{'"': '"', '[': ']', '{': '}'}

// skipTo returns the index of the first unescaped end at or after i.
func skipTo(s string, i int, end byte) int {
	for ; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == end {
			return i
		}
	}
	return len(s)
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if e := escapeQuery(f); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
	`/`, `\/`,
)
