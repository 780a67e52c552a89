// Package soql renders read queries in the remote service's query language.
// Queries are built with huandu/go-sqlbuilder and interpolated into complete
// statements, since the query endpoint takes no bind parameters; the MySQL
// flavor's single-quote and backslash escaping matches SOQL string literal
// rules, which keeps filter values injection-safe.
package soql

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"

	"github.com/apimgr/sfind/src/model"
)

// Filter is an equality predicate over one or more fields of the queried
// kind. Multiple fields are OR-combined in order. The zero Filter matches
// everything (no WHERE clause).
type Filter struct {
	fields []string
	value  string
}

// Eq returns a filter matching records whose field equals value.
func Eq(field, value string) Filter {
	return Filter{fields: []string{field}, value: value}
}

// AnyEq returns a filter matching records where any of the given fields
// equals value.
func AnyEq(fields []string, value string) Filter {
	return Filter{fields: append([]string(nil), fields...), value: value}
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return len(f.fields) == 0
}

// Query describes one read against the remote service.
type Query struct {
	Kind   model.EntityKind
	Fields []string
	Filter Filter

	// OrderRecency appends ORDER BY LastModifiedDate DESC, making row order
	// deterministic for lookups that may match several records.
	OrderRecency bool

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// Build renders the query as a complete SOQL statement. Identical queries
// always render to identical strings.
func Build(q Query) (string, error) {
	if !q.Kind.IsValid() {
		return "", fmt.Errorf("build query: invalid kind %q", q.Kind)
	}
	if len(q.Fields) == 0 {
		return "", fmt.Errorf("build query for %s: no fields requested", q.Kind)
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(q.Fields...)
	sb.From(q.Kind.String())

	if !q.Filter.IsZero() {
		exprs := make([]string, 0, len(q.Filter.fields))
		for _, field := range q.Filter.fields {
			exprs = append(exprs, sb.Equal(field, q.Filter.value))
		}
		if len(exprs) == 1 {
			sb.Where(exprs[0])
		} else {
			sb.Where(sb.Or(exprs...))
		}
	}

	if q.OrderRecency {
		sb.OrderBy("LastModifiedDate").Desc()
	}
	if q.Limit > 0 {
		sb.Limit(q.Limit)
	}

	stmt, args := sb.Build()
	out, err := sqlbuilder.MySQL.Interpolate(stmt, args)
	if err != nil {
		return "", fmt.Errorf("interpolate query for %s: %w", q.Kind, err)
	}
	return out, nil
}
