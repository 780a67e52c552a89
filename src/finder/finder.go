// Package finder implements the resolution engine. A raw query string is
// classified, resolved to a root entity with the minimal number of remote
// lookups, expanded across the fixed relationship graph through the account
// hub, and aggregated into one report.
package finder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apimgr/sfind/src/classify"
	"github.com/apimgr/sfind/src/model"
	"github.com/apimgr/sfind/src/soql"
)

// Querier executes one read query against the remote service.
type Querier interface {
	Query(ctx context.Context, stmt string) ([]model.RawRecord, error)
}

// Finder resolves identifiers to reports.
type Finder struct {
	client  Querier
	fields  model.FieldConfig
	timeout time.Duration
}

// Config holds finder configuration.
type Config struct {
	Fields  model.FieldConfig
	Timeout time.Duration
}

// New creates a finder backed by the given remote client.
func New(client Querier, config Config) *Finder {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Fields.Fields == nil {
		config.Fields = model.DefaultFieldConfig()
	}
	return &Finder{
		client:  client,
		fields:  config.Fields,
		timeout: config.Timeout,
	}
}

// Find resolves the given query string to a report. Root resolution failures
// abort the run; failures while fetching related entities are recorded as
// warnings on the report instead.
func (f *Finder) Find(ctx context.Context, query string) (*model.Report, error) {
	c := classify.Classify(query)
	if c.Match == classify.Unrecognized {
		return nil, fmt.Errorf("%w: %q", model.ErrBadInput, query)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	report, err := f.resolveRoot(ctx, c)
	if err != nil {
		return nil, err
	}

	f.expand(ctx, report)
	return report, nil
}

func (f *Finder) resolveRoot(ctx context.Context, c classify.Classification) (*model.Report, error) {
	if c.Match == classify.ByID {
		return f.rootByID(ctx, c.Kind, c.ID)
	}
	return f.rootByEmail(ctx, c.Email)
}

// rootByID resolves a record id to the root entity. An id identifies at most
// one record, so more than one row is rejected.
func (f *Finder) rootByID(ctx context.Context, kind model.EntityKind, id string) (*model.Report, error) {
	rows, err := f.fetch(ctx, kind, f.rootFields(kind), soql.Eq("Id", id), false)
	if err != nil {
		return nil, err
	}
	switch {
	case len(rows) == 0:
		return nil, fmt.Errorf("%w %q", model.ErrNotFound, id)
	case len(rows) > 1:
		return nil, fmt.Errorf("%w: %d records share id %q", model.ErrAmbiguousResult, len(rows), id)
	}
	return model.NewReport(model.NewEntity(kind, model.RootLabel, rows[0])), nil
}

// rootByEmail resolves an email address to a contact. Several contacts may
// share an address; the most recently modified one wins and the ambiguity is
// reported as a warning.
func (f *Finder) rootByEmail(ctx context.Context, email string) (*model.Report, error) {
	search := f.fields.SearchFor(model.KindContact)
	if len(search) == 0 {
		search = []string{"Email"}
	}
	rows, err := f.fetch(ctx, model.KindContact, f.rootFields(model.KindContact), soql.AnyEq(search, email), true)
	truncated := errors.Is(err, model.ErrTruncated)
	if err != nil && !truncated {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w %q", model.ErrNotFound, email)
	}
	report := model.NewReport(model.NewEntity(model.KindContact, model.RootLabel, rows[0]))
	if len(rows) > 1 {
		report.AddWarning(model.KindContact, "%d matches found", len(rows))
	}
	if truncated {
		report.AddWarning(model.KindContact, "match list truncated by the server")
	}
	return report, nil
}

// expand walks the relationship graph from the root: locate the account hub,
// then fan out to the account's related kinds. Failures here only cost the
// affected kind its entries.
func (f *Finder) expand(ctx context.Context, report *model.Report) {
	root := report.Root
	accountID := root.Fields.StringValue(root.Kind.AccountForeignKey())
	if accountID == "" {
		report.AddWarning(model.KindAccount, "no account linked, related records skipped")
		return
	}

	if root.Kind != model.KindAccount {
		f.fetchAccount(ctx, report, accountID)
	}

	kinds := make([]model.EntityKind, 0, 3)
	for _, kind := range model.AccountChildren() {
		// A contact root is already in the report; do not fetch it again
		// among the account's contacts.
		if kind == model.KindContact && root.Kind == model.KindContact {
			continue
		}
		kinds = append(kinds, kind)
	}

	type kindResult struct {
		kind model.EntityKind
		rows []model.RawRecord
		err  error
	}

	results := make(chan kindResult, len(kinds))
	var wg sync.WaitGroup

	for _, kind := range kinds {
		wg.Add(1)
		go func(kind model.EntityKind) {
			defer wg.Done()

			rows, err := f.fetch(ctx, kind, f.fields.FieldsFor(kind), soql.Eq(kind.AccountForeignKey(), accountID), true)
			results <- kindResult{kind: kind, rows: rows, err: err}
		}(kind)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	byKind := make(map[model.EntityKind]kindResult, len(kinds))
	for res := range results {
		byKind[res.kind] = res
	}

	// Fold results back in the fixed kind order so reports come out
	// identical from run to run. A truncated list keeps its rows, the
	// missing tail only costs a warning.
	for _, kind := range kinds {
		res := byKind[kind]
		if res.err != nil {
			if !errors.Is(res.err, model.ErrTruncated) {
				report.AddWarning(kind, "cannot fetch %s: %v", kind.RelationshipLabel(), res.err)
				continue
			}
			report.AddWarning(kind, "%s list truncated by the server", kind.RelationshipLabel())
		}
		for _, row := range res.rows {
			report.AddRelated(model.NewEntity(kind, kind.RelationshipLabel(), row))
		}
	}
}

// fetchAccount adds the account hub row for a non-account root.
func (f *Finder) fetchAccount(ctx context.Context, report *model.Report, accountID string) {
	rows, err := f.fetch(ctx, model.KindAccount, f.fields.FieldsFor(model.KindAccount), soql.Eq("Id", accountID), false)
	if err != nil {
		report.AddWarning(model.KindAccount, "cannot fetch account: %v", err)
		return
	}
	if len(rows) == 0 {
		report.AddWarning(model.KindAccount, "account %s not found", accountID)
		return
	}
	report.AddRelated(model.NewEntity(model.KindAccount, model.KindAccount.RelationshipLabel(), rows[0]))
}

func (f *Finder) fetch(ctx context.Context, kind model.EntityKind, fields []string, filter soql.Filter, recent bool) ([]model.RawRecord, error) {
	stmt, err := soql.Build(soql.Query{
		Kind:         kind,
		Fields:       fields,
		Filter:       filter,
		OrderRecency: recent,
	})
	if err != nil {
		return nil, err
	}
	return f.client.Query(ctx, stmt)
}

// rootFields returns the configured fields for a root query, with the
// account foreign key appended so expansion needs no extra lookup.
func (f *Finder) rootFields(kind model.EntityKind) []string {
	fields := f.fields.FieldsFor(kind)
	fk := kind.AccountForeignKey()
	for _, field := range fields {
		if field == fk {
			return fields
		}
	}
	out := make([]string, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, fk)
}
