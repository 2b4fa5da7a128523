package redis

import (
	"testing"

	"github.com/kailas-cloud/docdex/internal/domain/mapping"
	"github.com/kailas-cloud/docdex/internal/domain/search/query"
)

func TestBuildQuery(t *testing.T) {
	m := testMapping()
	l := newLayout(m)

	tests := []struct {
		name string
		q    query.Query
		want string
	}{
		{"nil", nil, "*"},
		{"match all", query.MatchAll{}, "*"},
		{"term keyword", query.Term{Field: "city", Value: "New York"}, `@city:{New\ York}`},
		{"term text uses raw tag", query.Term{Field: "title", Value: "Go"}, `@title__raw:{Go}`},
		{"term numeric", query.Term{Field: "price", Value: "10"}, `@price:[10 10]`},
		{"term date", query.Term{Field: "created", Value: "2024-01-01"}, `@created:[1704067200000 1704067200000]`},
		{"term id", query.Term{Field: "_id", Value: "a-1"}, `@__id:{a\-1}`},
		{"term unknown field", query.Term{Field: "nope", Value: "x"}, neverMatch},
		{"terms keyword", query.Terms{Field: "city", Values: []any{"Oslo", "Rome"}}, `@city:{Oslo | Rome}`},
		{"terms numeric", query.Terms{Field: "price", Values: []any{1, 2}}, `(@price:[1 1] | @price:[2 2])`},
		{"match text", query.Match{Field: "title", Text: "quick fox"}, `@title:(quick|fox)`},
		{"phrase", query.MatchPhrase{Field: "title", Text: "quick fox"}, `@title:"quick fox"`},
		{"wildcard keyword", query.Wildcard{Field: "city", Pattern: "*slo"}, `@city:{w'*slo'}`},
		{"wildcard text", query.Wildcard{Field: "title", Pattern: "*Fox*"}, `@title:(w'*fox*')`},
		{"prefix keyword", query.Prefix{Field: "city", Prefix: "Os"}, `@city:{Os*}`},
		{"range exclusive", query.Range{Field: "price", GT: 1, LTE: 5}, `@price:[(1 5]`},
		{"range open upper", query.Range{Field: "price", GTE: 2.5}, `@price:[2.5 +inf]`},
		{"range keyword unsupported", query.Range{Field: "city", GT: "a"}, neverMatch},
		{"exists", query.Exists{Field: "city"}, `-ismissing(@city)`},
		{"query string", query.QueryString{Text: "hello world"}, `(hello|world)`},
		{"query string empty", query.QueryString{Text: "  "}, "*"},
		{
			"bool must and should",
			query.Bool{
				Must:               []query.Query{query.QueryString{Text: "go"}},
				Should:             []query.Query{query.Term{Field: "city", Value: "Oslo"}, query.Term{Field: "city", Value: "Rome"}},
				MinimumShouldMatch: 1,
			},
			`(go) (@city:{Oslo} | @city:{Rome})`,
		},
		{
			"bool optional should",
			query.Bool{
				Filter: []query.Query{query.Range{Field: "price", LT: 3}},
				Should: []query.Query{query.Term{Field: "city", Value: "Oslo"}},
			},
			`@price:[-inf (3] ~(@city:{Oslo})`,
		},
		{"not exists", query.Not(query.Exists{Field: "city"}), `-(-ismissing(@city))`},
		{"empty bool", query.Bool{}, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuery(l, m, tt.q); got != tt.want {
				t.Errorf("buildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewLayout_SanitizesAliases(t *testing.T) {
	m := mapping.FromProperties([]mapping.Property{
		{Name: "First Name", Type: "keyword"},
		{Name: "First_Name", Type: "keyword"},
		{Name: "9lives", Type: "long"},
	})
	l := newLayout(m)

	for name, want := range map[string]string{
		"First Name": "First_Name",
		"First_Name": "First_Name_2",
		"9lives":     "f9lives",
	} {
		alias, _, ok := l.resolve(name)
		if !ok || alias != want {
			t.Errorf("resolve(%q) = %q, %v; want %q", name, alias, ok, want)
		}
	}
	if got := jsonPath("First Name"); got != `$["First Name"]` {
		t.Errorf("jsonPath = %q", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	input := `hello "world" @user {tag}`
	expected := `hello \"world\" \@user \{tag\}`
	if escaped := escapeQuery(input); escaped != expected {
		t.Errorf("expected %q, got %q", expected, escaped)
	}
}
