// Package expansion describes one-hop key lookups that attach related
// documents from another collection to search hits.
package expansion

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docdex/internal/domain"
)

const (
	// MaxKeys caps the distinct keys looked up per spec.
	MaxKeys = 500
	// Namespace is the reserved source key holding attached documents.
	Namespace = "_expanded"
	// IDField carries the target document id when it is not projected.
	IDField = "_id"
	// DefaultToField is the target field matched when none is given.
	DefaultToField = "id"
)

// Spec is a validated expansion definition.
type Spec struct {
	name      string
	target    string
	fromField string
	toField   string
	many      bool
	fields    []string
}

// New validates and creates a Spec. toField defaults to "id".
func New(name, target, fromField, toField string, many bool, fields []string) (Spec, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Spec{}, fmt.Errorf("expansion name is required: %w", domain.ErrInvalidRequest)
	}
	if strings.ContainsAny(name, ".") {
		return Spec{}, fmt.Errorf("expansion name %q must not contain dots: %w", name, domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(target) == "" {
		return Spec{}, fmt.Errorf("expansion %q: target collection is required: %w", name, domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(fromField) == "" {
		return Spec{}, fmt.Errorf("expansion %q: from_field is required: %w", name, domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(toField) == "" {
		toField = DefaultToField
	}
	return Spec{
		name:      name,
		target:    target,
		fromField: fromField,
		toField:   toField,
		many:      many,
		fields:    fields,
	}, nil
}

// Name returns the attachment name under Namespace.
func (s Spec) Name() string { return s.name }

// Target returns the target collection label.
func (s Spec) Target() string { return s.target }

// FromField returns the source field holding the key(s).
func (s Spec) FromField() string { return s.fromField }

// ToField returns the target field matched against the keys.
func (s Spec) ToField() string { return s.toField }

// Many reports whether the from-field holds a list of keys.
func (s Spec) Many() bool { return s.many }

// Fields returns the target projection. Empty means all fields.
func (s Spec) Fields() []string { return s.fields }

// Projects reports whether name is in the projection (always true when unprojected).
func (s Spec) Projects(name string) bool {
	if len(s.fields) == 0 {
		return true
	}
	for _, f := range s.fields {
		if f == name {
			return true
		}
	}
	return false
}
