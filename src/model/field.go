package model

import (
	"fmt"
	"strings"
)

// EntityField names one field of one entity kind, as written in
// configuration, for instance "Contact.Birthdate".
type EntityField struct {
	Kind EntityKind
	Name string
}

// String returns the configuration form of the field.
func (f EntityField) String() string {
	return string(f.Kind) + "." + f.Name
}

// ParseEntityField parses an "Entity.Field" configuration entry. The part
// after the first dot is kept verbatim, so relationship fields such as
// "Asset.Product2.Name" are accepted.
func ParseEntityField(s string) (EntityField, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return EntityField{}, fmt.Errorf("%w: invalid entity field %q", ErrInvalidConfig, s)
	}
	kind, err := ParseKind(parts[0])
	if err != nil {
		return EntityField{}, fmt.Errorf("cannot parse entity field %q: %w", s, err)
	}
	return EntityField{Kind: kind, Name: parts[1]}, nil
}

// defaultFields lists the built-in fields fetched for each kind, in the
// order they appear in queries and reports.
var defaultFields = map[EntityKind][]string{
	KindAccount: {
		"Id",
		"Name",
		"AccountNumber",
		"BillingAddress",
		"CreatedDate",
		"LastModifiedDate",
	},
	KindAsset: {
		"Id",
		"Name",
		"Product2.ProductCode",
		"Product2.Name",
		"Product2.LastModifiedDate",
		"Price",
		"Quantity",
		"Status",
		"ContactId",
		"InstallDate",
		"PurchaseDate",
		"UsageEndDate",
		"CreatedDate",
		"LastModifiedDate",
	},
	KindContact: {
		"Id",
		"Email",
		"FirstName",
		"LastName",
		"CreatedDate",
		"LastModifiedDate",
	},
	KindOpportunity: {
		"Id",
		"Name",
		"RecordType.Name",
		"StageName",
		"Amount",
		"CurrencyIsoCode",
		"IsWon",
		"IsClosed",
		"CloseDate",
		"LeadSource",
		"CreatedDate",
		"LastModifiedDate",
	},
}

// defaultSearch lists the built-in searchable fields per kind, used when
// resolving free-text input such as an email address.
var defaultSearch = map[EntityKind][]string{
	KindContact: {"Email"},
}

// FieldConfig holds the per-kind field and search lists consumed by the
// resolution engine, with built-in defaults already merged in. It is
// assembled once at startup and passed by value.
type FieldConfig struct {
	Fields map[EntityKind][]string
	Search map[EntityKind][]string
}

// DefaultFieldConfig returns the built-in field configuration.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		Fields: copyFieldMap(defaultFields),
		Search: copyFieldMap(defaultSearch),
	}
}

// NewFieldConfig merges user "Entity.Field" entries into the built-in
// defaults. User fields are appended after the defaults for their kind,
// duplicates are dropped, and order is otherwise preserved. A malformed
// entry fails the whole configuration.
func NewFieldConfig(fields, search []string) (FieldConfig, error) {
	cfg := DefaultFieldConfig()
	if err := mergeEntries(cfg.Fields, fields); err != nil {
		return FieldConfig{}, err
	}
	if err := mergeEntries(cfg.Search, search); err != nil {
		return FieldConfig{}, err
	}
	return cfg, nil
}

// FieldsFor returns the ordered field list fetched for the given kind.
func (c FieldConfig) FieldsFor(kind EntityKind) []string {
	return c.Fields[kind]
}

// SearchFor returns the ordered searchable field list for the given kind.
func (c FieldConfig) SearchFor(kind EntityKind) []string {
	return c.Search[kind]
}

func mergeEntries(dst map[EntityKind][]string, entries []string) error {
	for _, entry := range entries {
		ef, err := ParseEntityField(strings.TrimSpace(entry))
		if err != nil {
			return err
		}
		if !containsField(dst[ef.Kind], ef.Name) {
			dst[ef.Kind] = append(dst[ef.Kind], ef.Name)
		}
	}
	return nil
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func copyFieldMap(src map[EntityKind][]string) map[EntityKind][]string {
	dst := make(map[EntityKind][]string, len(src))
	for kind, fields := range src {
		dst[kind] = append([]string(nil), fields...)
	}
	return dst
}
