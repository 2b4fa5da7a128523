// Package schema infers per-field scalar types from sampled tabular rows.
package schema

import "github.com/kailas-cloud/docdex/internal/domain/collection/field"

// Schema is an ordered, immutable set of typed fields.
type Schema struct {
	fields []field.Field
	index  map[string]int
}

// New creates a Schema from fields. Later duplicates replace earlier ones in place.
func New(fields []field.Field) Schema {
	s := Schema{
		fields: make([]field.Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if i, ok := s.index[f.Name()]; ok {
			s.fields[i] = f
			continue
		}
		s.index[f.Name()] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Fields returns a copy of the fields in declaration order.
func (s Schema) Fields() []field.Field {
	out := make([]field.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of fields.
func (s Schema) Len() int { return len(s.fields) }

// Lookup returns the type of a field.
func (s Schema) Lookup(name string) (field.Type, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.fields[i].FieldType(), true
}

// Names returns field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name()
	}
	return names
}
