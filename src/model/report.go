package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// RawRecord maps field names to the scalar values returned by the remote
// service for one record. Nested relationship objects are flattened into
// dotted names ("Product2.Name") before a record reaches the engine.
type RawRecord map[string]any

// ID returns the record's Id field, if present.
func (r RawRecord) ID() string {
	return r.StringValue("Id")
}

// StringValue returns the named field as a string, or "" when the field is
// absent, null, or not a string.
func (r RawRecord) StringValue(field string) string {
	if v, ok := r[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// EntityRef identifies a record and the relationship through which it was
// reached. The root entity carries the label "root".
type EntityRef struct {
	Kind  EntityKind `json:"kind"`
	ID    string     `json:"id"`
	Label string     `json:"label"`
}

// Entity pairs a reference with the raw fields fetched for it.
type Entity struct {
	EntityRef
	Fields RawRecord `json:"fields"`
}

// NewEntity builds an entity from a fetched record.
func NewEntity(kind EntityKind, label string, fields RawRecord) Entity {
	return Entity{
		EntityRef: EntityRef{Kind: kind, ID: fields.ID(), Label: label},
		Fields:    fields,
	}
}

// Warning records a non-fatal problem encountered while building a report,
// such as a failed related-entity fetch or an ambiguous match.
type Warning struct {
	Kind    EntityKind `json:"kind,omitempty"`
	Message string     `json:"message"`
}

// Report is the aggregated outcome of one resolution: the root entity, the
// related entities reached from it, and any warnings collected on the way.
// The engine builds it incrementally; once returned it is not modified.
type Report struct {
	Root     Entity    `json:"root"`
	Related  []Entity  `json:"related"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// NewReport creates a report for the given root entity.
func NewReport(root Entity) *Report {
	return &Report{
		Root:    root,
		Related: make([]Entity, 0),
	}
}

// AddRelated appends a related entity to the report.
func (rp *Report) AddRelated(e Entity) {
	rp.Related = append(rp.Related, e)
}

// AddWarning attaches a warning about the given kind to the report.
func (rp *Report) AddWarning(kind EntityKind, format string, args ...any) {
	rp.Warnings = append(rp.Warnings, Warning{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// RelatedByLabel returns the related entities carrying the given label, in
// insertion order.
func (rp *Report) RelatedByLabel(label string) []Entity {
	var out []Entity
	for _, e := range rp.Related {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// ToJSON writes the report as JSON.
func (rp *Report) ToJSON(w io.Writer, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rp)
}
