package document

import (
	"fmt"
	"maps"
	"strings"
	"unicode"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// MaxIDLength is the longest accepted document id in bytes.
const MaxIDLength = 512

// Document is a schemaless record (immutable value object).
type Document struct {
	id   string
	body map[string]any
}

// ValidateID checks a caller-supplied document id. Empty ids are allowed and
// mean "assign one".
func ValidateID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document id too long (max %d): %w", MaxIDLength, domain.ErrInvalidRequest)
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return fmt.Errorf("document id must not contain whitespace: %w", domain.ErrInvalidRequest)
	}
	return nil
}

// New validates and creates a Document. id may be empty (backend-assigned).
func New(id string, body map[string]any) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if body == nil {
		return Document{}, fmt.Errorf("document body is required: %w", domain.ErrInvalidRequest)
	}
	return Document{id: id, body: maps.Clone(body)}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id string, body map[string]any) Document {
	if body == nil {
		body = make(map[string]any)
	}
	return Document{id: id, body: body}
}

// ID returns the document id, empty if not yet assigned.
func (d Document) ID() string { return d.id }

// Body returns the document fields.
func (d Document) Body() map[string]any { return d.body }

// WithID returns a copy carrying id.
func (d Document) WithID(id string) Document {
	d.id = id
	return d
}
