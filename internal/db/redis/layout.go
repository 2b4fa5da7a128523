package redis

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/mapping"
)

// Reserved document attributes.
const (
	idAttr     = "__id"
	shadowAttr = "__ms"
	rawSuffix  = "__raw"

	tagSeparator = "|"
)

// attr is the RediSearch view of one mapped field.
type attr struct {
	prop  mapping.Property
	alias string
}

// layout binds mapped fields to index aliases. Aliases are derived from the
// mapping order, so every node computes the same layout for a collection.
type layout struct {
	attrs map[string]attr
}

func newLayout(m mapping.Mapping) layout {
	l := layout{attrs: make(map[string]attr)}
	used := map[string]bool{idAttr: true, shadowAttr: true}
	for _, p := range m.Properties() {
		base := aliasBase(p.Name)
		alias := base
		for n := 2; used[alias] || used[alias+rawSuffix]; n++ {
			alias = base + "_" + strconv.Itoa(n)
		}
		used[alias] = true
		if p.Raw {
			used[alias+rawSuffix] = true
		}
		l.attrs[p.Name] = attr{prop: p, alias: alias}
	}
	return l
}

// resolve returns the alias and effective type for a query field.
// "name.raw" resolves to the TAG alias of a text field.
func (l layout) resolve(name string) (string, field.Type, bool) {
	if a, ok := l.attrs[name]; ok {
		return a.alias, a.prop.Type, true
	}
	if base, sub, ok := strings.Cut(name, "."); ok && sub == mapping.RawSubfield {
		if a, ok := l.attrs[base]; ok && a.prop.Raw {
			return a.alias + rawSuffix, field.Keyword, true
		}
	}
	return "", "", false
}

// fields returns the FT.CREATE schema for the layout in mapping order.
func (l layout) fields(m mapping.Mapping) []IndexField {
	b := NewIndex("schema").Tag("$."+idAttr, idAttr)
	for _, p := range m.Properties() {
		a := l.attrs[p.Name]
		path := jsonPath(p.Name)
		switch p.Type {
		case field.Long, field.Float:
			b.Numeric(path, a.alias)
		case field.Date:
			b.Numeric("$."+shadowAttr+pathSegment(p.Name), a.alias)
		case field.Keyword:
			b.Tag(path, a.alias)
		default:
			b.Text(path, a.alias)
			if p.Raw {
				b.Tag(path, a.alias+rawSuffix)
			}
		}
	}
	return b.def.Fields
}

// shadows computes the epoch-millis attributes for date fields present in body.
func (l layout) shadows(body map[string]any) map[string]any {
	var out map[string]any
	for name, a := range l.attrs {
		if a.prop.Type != field.Date {
			continue
		}
		v, ok := body[name]
		if !ok {
			continue
		}
		ms, ok := mapping.EpochMillis(v)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[name] = ms
	}
	return out
}

func aliasBase(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" || out[0] == '_' || (out[0] >= '0' && out[0] <= '9') {
		out = "f" + out
	}
	return out
}

func jsonPath(name string) string {
	return "$" + pathSegment(name)
}

func pathSegment(name string) string {
	if isPlainIdent(name) {
		return "." + name
	}
	return `["` + strings.ReplaceAll(name, `"`, `\"`) + `"]`
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if !alpha && (!digit || i == 0) {
			return false
		}
	}
	return true
}
