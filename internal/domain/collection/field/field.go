package field

import "fmt"

// Type is the inferred scalar type of a field.
type Type string

// Field type constants.
const (
	Null    Type = "null"
	Long    Type = "long"
	Float   Type = "float"
	Date    Type = "date"
	Keyword Type = "keyword"
	// Text is the universal fallback type.
	Text Type = "text"
)

// IsValid reports whether t is one of the known field types.
func (t Type) IsValid() bool {
	switch t {
	case Null, Long, Float, Date, Keyword, Text:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type are coerced to numbers on load.
func (t Type) IsNumeric() bool {
	return t == Long || t == Float
}

// Field is an immutable value object describing one collection field.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
// Name must be non-empty and must not start with an underscore.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if name[0] == '_' {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's inferred type.
func (f Field) FieldType() Type { return f.fieldType }
