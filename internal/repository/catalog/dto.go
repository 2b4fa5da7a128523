package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/kailas-cloud/docdex/internal/domain/collection"
	"github.com/kailas-cloud/docdex/internal/domain/collection/field"
)

// fieldRow is the JSON-serializable representation of an inferred field.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// collectionToRecord converts a domain Collection to a catalog document body.
func collectionToRecord(col collection.Collection) (map[string]any, error) {
	rows := make([]fieldRow, len(col.Fields()))
	for i, f := range col.Fields() {
		rows[i] = fieldRow{Name: f.Name(), Type: string(f.FieldType())}
	}
	fieldsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return map[string]any{
		"tenant":      col.Tenant(),
		"label":       col.Label(),
		"collection":  col.Name(),
		"fields_json": string(fieldsJSON),
		"doc_count":   col.DocCount(),
		"created_at":  col.CreatedAt(),
	}, nil
}

// collectionFromRecord hydrates a domain Collection from a catalog document body.
// Numbers may arrive as float64 or strings depending on the backend.
func collectionFromRecord(m map[string]any) (collection.Collection, error) {
	createdAt, err := cast.ToInt64E(m["created_at"])
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}
	docCount, err := cast.ToIntE(m["doc_count"])
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid doc_count: %w", err)
	}

	var rows []fieldRow
	if raw := cast.ToString(m["fields_json"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	fields := make([]field.Field, len(rows))
	for i, r := range rows {
		fields[i] = field.Reconstruct(r.Name, field.Type(r.Type))
	}

	return collection.Reconstruct(
		cast.ToString(m["tenant"]), cast.ToString(m["label"]), fields, docCount, createdAt,
	), nil
}
