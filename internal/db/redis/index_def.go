package redis

import (
	"errors"
	"strconv"
	"strings"
)

// StorageType defines the document storage backend for FT indexes (HASH or JSON).
type StorageType string

const (
	// StorageHash stores documents as Redis hashes.
	StorageHash StorageType = "HASH"
	// StorageJSON stores documents as RedisJSON values.
	StorageJSON StorageType = "JSON"
)

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string // JSON path for JSON storage
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool

	Sortable     bool
	IndexMissing bool
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return errors.New("field name is required at index " + strconv.Itoa(i))
		}
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true
	}

	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_.:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-' || r == '.'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}

// IndexBuilder is a fluent builder for FT index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:        name,
			StorageType: StorageHash,
		},
	}
}

// OnJSON sets the index storage type to JSON.
func (b *IndexBuilder) OnJSON() *IndexBuilder {
	b.def.StorageType = StorageJSON
	return b
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC field read from path and exposed as alias.
func (b *IndexBuilder) Numeric(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:         path,
		Alias:        alias,
		Type:         IndexFieldNumeric,
		Sortable:     true,
		IndexMissing: true,
	})
	return b
}

// Tag adds a case-sensitive TAG field read from path and exposed as alias.
func (b *IndexBuilder) Tag(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:             path,
		Alias:            alias,
		Type:             IndexFieldTag,
		TagSeparator:     tagSeparator,
		TagCaseSensitive: true,
		Sortable:         true,
		IndexMissing:     true,
	})
	return b
}

// Text adds a TEXT field read from path and exposed as alias.
func (b *IndexBuilder) Text(path, alias string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:         path,
		Alias:        alias,
		Type:         IndexFieldText,
		IndexMissing: true,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// String returns a debug representation resembling the FT.CREATE command.
func (idx *IndexDefinition) String() string {
	parts := []string{"FT.CREATE", idx.Name}
	if idx.StorageType != "" {
		parts = append(parts, "ON", string(idx.StorageType))
	}
	if len(idx.Prefixes) > 0 {
		parts = append(parts, "PREFIX")
		parts = append(parts, idx.Prefixes...)
	}
	parts = append(parts, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name)
		if f.Alias != "" {
			parts = append(parts, "AS", f.Alias)
		}
		switch f.Type {
		case IndexFieldTag:
			parts = append(parts, "TAG")
		case IndexFieldNumeric:
			parts = append(parts, "NUMERIC")
		case IndexFieldText:
			parts = append(parts, "TEXT")
		}
	}
	return strings.Join(parts, " ")
}

func buildCreateArgs(idx *IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		args = append(args, buildFieldArgs(&idx.Fields[i])...)
	}

	return args, nil
}

func buildFieldArgs(f *IndexField) []string {
	args := []string{f.Name}

	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case IndexFieldNumeric:
		args = append(args, "NUMERIC")

	case IndexFieldText:
		args = append(args, "TEXT")

	case IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	}

	if f.IndexMissing {
		args = append(args, "INDEXMISSING")
	}
	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args
}
