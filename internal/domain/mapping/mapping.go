// Package mapping converts an inferred schema into a search-engine field mapping.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
	"github.com/kailas-cloud/docdex/internal/domain/schema"
)

// RawSubfield is the name of the exact-match sub-field attached to text fields.
const RawSubfield = "raw"

// DateFormats are the formats accepted by date fields, in match order.
var DateFormats = []string{
	"strict_date_optional_time",
	"epoch_millis",
	"yyyy/MM/dd",
	"MM/dd/yyyy",
	"dd/MM/yyyy",
	"yyyy-MM-dd HH:mm:ss",
	"yyyy/MM/dd HH:mm:ss",
	"dd/MM/yyyy HH:mm:ss",
}

// Property is the mapping of one field.
type Property struct {
	Name string
	Type field.Type
	// Raw is set for text fields carrying an unanalyzed sub-field.
	Raw bool
	// Formats lists accepted input formats for date fields.
	Formats []string
}

// ExactField returns the field path to use for exact-match queries.
func (p Property) ExactField() string {
	if p.Raw {
		return p.Name + "." + RawSubfield
	}
	return p.Name
}

// Mapping is an ordered set of field properties. Fields absent from the
// mapping are handled by the backend's dynamic mapping.
type Mapping struct {
	props []Property
	index map[string]int
}

// Empty returns a mapping with no explicit properties.
func Empty() Mapping { return Mapping{} }

// Build converts a schema into a mapping.
func Build(s schema.Schema) Mapping {
	fields := s.Fields()
	props := make([]Property, 0, len(fields))
	for _, f := range fields {
		props = append(props, propertyFor(f.Name(), f.FieldType()))
	}
	return FromProperties(props)
}

// FromProperties creates a mapping from explicit properties.
func FromProperties(props []Property) Mapping {
	m := Mapping{
		props: make([]Property, 0, len(props)),
		index: make(map[string]int, len(props)),
	}
	for _, p := range props {
		if i, ok := m.index[p.Name]; ok {
			m.props[i] = p
			continue
		}
		m.index[p.Name] = len(m.props)
		m.props = append(m.props, p)
	}
	return m
}

func propertyFor(name string, t field.Type) Property {
	switch t {
	case field.Text:
		return Property{Name: name, Type: field.Text, Raw: true}
	case field.Keyword, field.Long, field.Float:
		return Property{Name: name, Type: t}
	case field.Date:
		formats := make([]string, len(DateFormats))
		copy(formats, DateFormats)
		return Property{Name: name, Type: field.Date, Formats: formats}
	default:
		return Property{Name: name, Type: field.Text}
	}
}

// Properties returns a copy of the properties in declaration order.
func (m Mapping) Properties() []Property {
	out := make([]Property, len(m.props))
	copy(out, m.props)
	return out
}

// IsEmpty reports whether the mapping declares no properties.
func (m Mapping) IsEmpty() bool { return len(m.props) == 0 }

// Lookup returns the property for a field name.
// A "name.raw" path resolves to the keyword sub-field of a text property.
func (m Mapping) Lookup(name string) (Property, bool) {
	if i, ok := m.index[name]; ok {
		return m.props[i], true
	}
	if base, sub, ok := strings.Cut(name, "."); ok && sub == RawSubfield {
		if i, ok := m.index[base]; ok && m.props[i].Raw {
			return Property{Name: name, Type: field.Keyword}, true
		}
	}
	return Property{}, false
}

// ExactField returns the exact-match path for name. Unknown fields map to themselves.
func (m Mapping) ExactField(name string) string {
	if p, ok := m.Lookup(name); ok {
		return p.ExactField()
	}
	return name
}

type jsonProperty struct {
	Type   string                  `json:"type"`
	Fields map[string]jsonProperty `json:"fields,omitempty"`
	Format string                  `json:"format,omitempty"`
}

// MarshalJSON renders {"properties": {...}} with properties in declaration order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"properties":{`)
	for i, p := range m.props {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal property name: %w", err)
		}
		jp := jsonProperty{Type: string(p.Type)}
		if p.Raw {
			jp.Fields = map[string]jsonProperty{RawSubfield: {Type: string(field.Keyword)}}
		}
		if len(p.Formats) > 0 {
			jp.Format = strings.Join(p.Formats, "||")
		}
		body, err := json.Marshal(jp)
		if err != nil {
			return nil, fmt.Errorf("marshal property %s: %w", p.Name, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON parses the {"properties": {...}} shape. Property order follows
// the JSON object order.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode mapping: %w", err)
	}
	if len(raw.Properties) == 0 || string(raw.Properties) == "null" {
		*m = Empty()
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Properties))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	var props []Property
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode property name: %w", err)
		}
		name, _ := tok.(string)
		var jp jsonProperty
		if err := dec.Decode(&jp); err != nil {
			return fmt.Errorf("decode property %s: %w", name, err)
		}
		p := Property{Name: name, Type: field.Type(jp.Type)}
		if !p.Type.IsValid() || p.Type == field.Null {
			p.Type = field.Text
		}
		if _, ok := jp.Fields[RawSubfield]; ok && p.Type == field.Text {
			p.Raw = true
		}
		if jp.Format != "" {
			p.Formats = strings.Split(jp.Format, "||")
		}
		props = append(props, p)
	}
	*m = FromProperties(props)
	return nil
}
