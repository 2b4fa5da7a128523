package collection

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/docdex/internal/domain"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
)

const (
	// DefaultLabel is used when a caller names no collection.
	DefaultLabel = "default"
	// namePrefix namespaces every physical collection by tenant.
	namePrefix = "users-"
)

var (
	tenantRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	labelRegex  = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,127}$`)
)

// NormalizeLabel trims and lower-cases a label, defaulting to DefaultLabel.
func NormalizeLabel(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return DefaultLabel
	}
	return l
}

// PhysicalName derives the tenant-scoped physical collection id.
// The tenant part never contains "-", so the first hyphen after the prefix
// always ends it and distinct (tenant, label) pairs never share a name.
func PhysicalName(tenant, label string) string {
	return namePrefix + escapeTenant(tenant) + "-" + NormalizeLabel(label)
}

// escapeTenant rewrites "_" as "__" and "-" as "_h".
func escapeTenant(tenant string) string {
	if !strings.ContainsAny(tenant, "_-") {
		return tenant
	}
	var b strings.Builder
	b.Grow(len(tenant) + 4)
	for _, r := range tenant {
		switch r {
		case '_':
			b.WriteString("__")
		case '-':
			b.WriteString("_h")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTenant checks a resolved tenant identity.
func ValidateTenant(tenant string) error {
	if !tenantRegex.MatchString(tenant) {
		return fmt.Errorf("tenant %q must be 1-64 alphanumeric, underscore or hyphen chars: %w",
			tenant, domain.ErrInvalidTenant)
	}
	return nil
}

// Slugify turns an arbitrary name (e.g. an upload filename) into a label.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	s := b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "dataset"
	}
	return s
}

// Collection is a tenant-scoped collection reference (immutable value object).
type Collection struct {
	tenant    string
	label     string
	name      string
	fields    []field.Field
	docCount  int
	createdAt int64
}

// New validates tenant and label and derives the physical name.
func New(tenant, label string) (Collection, error) {
	if err := ValidateTenant(tenant); err != nil {
		return Collection{}, err
	}
	l := NormalizeLabel(label)
	if !labelRegex.MatchString(l) {
		return Collection{}, fmt.Errorf("collection label %q is invalid: %w", label, domain.ErrInvalidRequest)
	}
	return Collection{
		tenant:    tenant,
		label:     l,
		name:      PhysicalName(tenant, l),
		createdAt: time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(tenant, label string, fields []field.Field, docCount int, createdAt int64) Collection {
	l := NormalizeLabel(label)
	return Collection{
		tenant:    tenant,
		label:     l,
		name:      PhysicalName(tenant, l),
		fields:    fields,
		docCount:  docCount,
		createdAt: createdAt,
	}
}

// WithFields returns a copy carrying the inferred fields.
func (c Collection) WithFields(fields []field.Field) Collection {
	c.fields = fields
	return c
}

// WithDocCount returns a copy carrying a document count.
func (c Collection) WithDocCount(n int) Collection {
	c.docCount = n
	return c
}

// Tenant returns the owning tenant.
func (c Collection) Tenant() string { return c.tenant }

// Label returns the normalized caller-facing label.
func (c Collection) Label() string { return c.label }

// Name returns the physical collection id.
func (c Collection) Name() string { return c.name }

// Fields returns the inferred field definitions, if known.
func (c Collection) Fields() []field.Field { return c.fields }

// DocCount returns the last recorded document count.
func (c Collection) DocCount() int { return c.docCount }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// FieldByName looks up a field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}
