package patch

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// Patch is a shallow partial update: top-level keys replace the stored
// values, keys not present are unchanged.
type Patch struct {
	fields map[string]any
}

// New validates and creates a Patch. At least one field must be provided.
func New(fields map[string]any) (Patch, error) {
	if len(fields) == 0 {
		return Patch{}, fmt.Errorf("at least one field must be provided: %w", domain.ErrInvalidRequest)
	}
	return Patch{fields: maps.Clone(fields)}, nil
}

// Fields returns the replacement values.
func (p Patch) Fields() map[string]any { return p.fields }

// Apply returns base shallow-merged with the patch. base is not modified.
func (p Patch) Apply(base map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(p.fields))
	maps.Copy(out, base)
	maps.Copy(out, p.fields)
	return out
}
