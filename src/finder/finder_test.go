package finder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/apimgr/sfind/src/model"
)

// Statements the engine is expected to build for the default field
// configuration. Tests key the fake client on these, so a change in query
// construction shows up as an unhandled query.
const (
	accountByID = "SELECT Id, Name, AccountNumber, BillingAddress, CreatedDate, LastModifiedDate " +
		"FROM Account WHERE Id = '0012500001Lhk3hAAB'"
	assetByID = "SELECT Id, Name, Product2.ProductCode, Product2.Name, Product2.LastModifiedDate, " +
		"Price, Quantity, Status, ContactId, InstallDate, PurchaseDate, UsageEndDate, CreatedDate, " +
		"LastModifiedDate, AccountId FROM Asset WHERE Id = '02i2500000HTaW9AAL'"
	contactByID = "SELECT Id, Email, FirstName, LastName, CreatedDate, LastModifiedDate, AccountId " +
		"FROM Contact WHERE Id = '0032500001QqQq1AAF'"
	contactByEmail = "SELECT Id, Email, FirstName, LastName, CreatedDate, LastModifiedDate, AccountId " +
		"FROM Contact WHERE Email = 'who@example.com' ORDER BY LastModifiedDate DESC"

	opportunityFan = "SELECT Id, Name, RecordType.Name, StageName, Amount, CurrencyIsoCode, IsWon, " +
		"IsClosed, CloseDate, LeadSource, CreatedDate, LastModifiedDate " +
		"FROM Opportunity WHERE AccountId = '0012500001Lhk3hAAB' ORDER BY LastModifiedDate DESC"
	assetFan = "SELECT Id, Name, Product2.ProductCode, Product2.Name, Product2.LastModifiedDate, " +
		"Price, Quantity, Status, ContactId, InstallDate, PurchaseDate, UsageEndDate, CreatedDate, " +
		"LastModifiedDate FROM Asset WHERE AccountId = '0012500001Lhk3hAAB' ORDER BY LastModifiedDate DESC"
	contactFan = "SELECT Id, Email, FirstName, LastName, CreatedDate, LastModifiedDate " +
		"FROM Contact WHERE AccountId = '0012500001Lhk3hAAB' ORDER BY LastModifiedDate DESC"
)

type fakeResult struct {
	rows []model.RawRecord
	err  error
}

// fakeClient serves canned rows keyed by the exact statement text. The
// fan-out queries arrive from several goroutines, hence the lock.
type fakeClient struct {
	mu      sync.Mutex
	calls   []string
	results map[string]fakeResult
}

func newFakeClient() *fakeClient {
	return &fakeClient{results: make(map[string]fakeResult)}
}

func (c *fakeClient) on(stmt string, rows ...model.RawRecord) *fakeClient {
	c.results[stmt] = fakeResult{rows: rows}
	return c
}

func (c *fakeClient) fail(stmt string, err error) *fakeClient {
	c.results[stmt] = fakeResult{err: err}
	return c
}

// partial serves rows together with an error, the way a truncated remote
// response comes back.
func (c *fakeClient) partial(stmt string, err error, rows ...model.RawRecord) *fakeClient {
	c.results[stmt] = fakeResult{rows: rows, err: err}
	return c
}

func (c *fakeClient) Query(ctx context.Context, stmt string) ([]model.RawRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, stmt)
	res, ok := c.results[stmt]
	if !ok {
		return nil, fmt.Errorf("unhandled query %q", stmt)
	}
	return res.rows, res.err
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeClient) queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func accountRow() model.RawRecord {
	return model.RawRecord{"Id": "0012500001Lhk3hAAB", "Name": "Acme"}
}

func TestFindByAccountID(t *testing.T) {
	client := newFakeClient().
		on(accountByID, accountRow()).
		on(opportunityFan, model.RawRecord{"Id": "0062500000badWoAAI", "Name": "Renewal"}).
		on(assetFan,
			model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"},
			model.RawRecord{"Id": "02i2500000HTaWAAA1", "Name": "Gadget"}).
		on(contactFan, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"})

	report, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if report.Root.Kind != model.KindAccount || report.Root.ID != "0012500001Lhk3hAAB" {
		t.Errorf("root = %+v", report.Root.EntityRef)
	}
	if report.Root.Label != model.RootLabel {
		t.Errorf("root label = %q", report.Root.Label)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v", report.Warnings)
	}
	if got := len(report.RelatedByLabel("opportunities")); got != 1 {
		t.Errorf("opportunities = %d, want 1", got)
	}
	if got := len(report.RelatedByLabel("assets")); got != 2 {
		t.Errorf("assets = %d, want 2", got)
	}
	if got := len(report.RelatedByLabel("contacts")); got != 1 {
		t.Errorf("contacts = %d, want 1", got)
	}
	if client.callCount() != 4 {
		t.Errorf("remote calls = %d, want 4", client.callCount())
	}

	// Related entities come out grouped in a fixed kind order.
	var labels []string
	for _, e := range report.Related {
		if len(labels) == 0 || labels[len(labels)-1] != e.Label {
			labels = append(labels, e.Label)
		}
	}
	want := []string{"opportunities", "assets", "contacts"}
	if len(labels) != len(want) {
		t.Fatalf("label groups = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("label groups = %v, want %v", labels, want)
		}
	}
}

func TestFindByAssetID(t *testing.T) {
	client := newFakeClient().
		on(assetByID, model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget", "AccountId": "0012500001Lhk3hAAB"}).
		on(accountByID, accountRow()).
		on(opportunityFan).
		on(assetFan, model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"}).
		on(contactFan, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"})

	report, err := New(client, Config{}).Find(context.Background(), "02i2500000HTaW9AAL")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if report.Root.Kind != model.KindAsset {
		t.Errorf("root kind = %s", report.Root.Kind)
	}
	accounts := report.RelatedByLabel("account")
	if len(accounts) != 1 || accounts[0].ID != "0012500001Lhk3hAAB" {
		t.Fatalf("account group = %+v", accounts)
	}
	if report.Related[0].Label != "account" {
		t.Errorf("first related entity = %q, want the account hub", report.Related[0].Label)
	}
	if client.callCount() != 5 {
		t.Errorf("remote calls = %d, want 5", client.callCount())
	}
}

func TestFindByContactID(t *testing.T) {
	client := newFakeClient().
		on(contactByID, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com", "AccountId": "0012500001Lhk3hAAB"}).
		on(accountByID, accountRow()).
		on(opportunityFan, model.RawRecord{"Id": "0062500000badWoAAI", "Name": "Renewal"}).
		on(assetFan)

	report, err := New(client, Config{}).Find(context.Background(), "0032500001QqQq1AAF")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if got := len(report.RelatedByLabel("contacts")); got != 0 {
		t.Errorf("contact root fanned out to contacts: %d entries", got)
	}
	for _, stmt := range client.queries() {
		if strings.Contains(stmt, "FROM Contact WHERE AccountId") {
			t.Errorf("contact fan-out query issued for a contact root: %s", stmt)
		}
	}
	if client.callCount() != 4 {
		t.Errorf("remote calls = %d, want 4", client.callCount())
	}
}

func TestFindByEmail(t *testing.T) {
	client := newFakeClient().
		on(contactByEmail, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com", "AccountId": "0012500001Lhk3hAAB"}).
		on(accountByID, accountRow()).
		on(opportunityFan).
		on(assetFan)

	report, err := New(client, Config{}).Find(context.Background(), "who@example.com")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if report.Root.Kind != model.KindContact || report.Root.ID != "0032500001QqQq1AAF" {
		t.Errorf("root = %+v", report.Root.EntityRef)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestFindByEmailMultipleMatches(t *testing.T) {
	client := newFakeClient().
		on(contactByEmail,
			model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"},
			model.RawRecord{"Id": "0032500001QqQq2AAG", "Email": "who@example.com"}).
		on(opportunityFan).
		on(assetFan)

	report, err := New(client, Config{}).Find(context.Background(), "who@example.com")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if report.Root.ID != "0032500001QqQq1AAF" {
		t.Errorf("root id = %q, want the first match", report.Root.ID)
	}
	found := false
	for _, w := range report.Warnings {
		if w.Kind == model.KindContact && w.Message == "2 matches found" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a 2 matches found warning", report.Warnings)
	}
}

func TestFindBadInput(t *testing.T) {
	client := newFakeClient()

	_, err := New(client, Config{}).Find(context.Background(), "not-an-id-or-email")
	if !errors.Is(err, model.ErrBadInput) {
		t.Fatalf("Find error = %v, want ErrBadInput", err)
	}
	if client.callCount() != 0 {
		t.Errorf("bad input issued %d remote calls, want 0", client.callCount())
	}
}

func TestFindRootNotFound(t *testing.T) {
	client := newFakeClient().on(accountByID)

	_, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Find error = %v, want ErrNotFound", err)
	}
	if got := err.Error(); got != `nothing found for query "0012500001Lhk3hAAB"` {
		t.Errorf("error message = %q", got)
	}
	if client.callCount() != 1 {
		t.Errorf("remote calls = %d, want 1", client.callCount())
	}
}

func TestFindEmailNotFound(t *testing.T) {
	client := newFakeClient().on(contactByEmail)

	_, err := New(client, Config{}).Find(context.Background(), "who@example.com")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Find error = %v, want ErrNotFound", err)
	}
	if got := err.Error(); got != `nothing found for query "who@example.com"` {
		t.Errorf("error message = %q", got)
	}
}

func TestFindAmbiguousID(t *testing.T) {
	client := newFakeClient().on(accountByID, accountRow(), accountRow())

	_, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if !errors.Is(err, model.ErrAmbiguousResult) {
		t.Fatalf("Find error = %v, want ErrAmbiguousResult", err)
	}
}

func TestFindRootRemoteError(t *testing.T) {
	client := newFakeClient().
		fail(accountByID, fmt.Errorf("%w: connection refused", model.ErrNetwork))

	_, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("Find error = %v, want ErrNetwork", err)
	}
	if client.callCount() != 1 {
		t.Errorf("root failure issued %d remote calls, want 1", client.callCount())
	}
}

func TestFindPartialFailure(t *testing.T) {
	client := newFakeClient().
		on(accountByID, accountRow()).
		fail(opportunityFan, fmt.Errorf("%w: query timed out", model.ErrNetwork)).
		on(assetFan, model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"}).
		on(contactFan, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"})

	report, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if got := len(report.RelatedByLabel("opportunities")); got != 0 {
		t.Errorf("opportunities = %d, want 0", got)
	}
	if got := len(report.RelatedByLabel("assets")); got != 1 {
		t.Errorf("assets = %d, want 1", got)
	}
	if got := len(report.RelatedByLabel("contacts")); got != 1 {
		t.Errorf("contacts = %d, want 1", got)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", report.Warnings)
	}
	w := report.Warnings[0]
	if w.Kind != model.KindOpportunity {
		t.Errorf("warning kind = %s, want Opportunity", w.Kind)
	}
	if !strings.Contains(w.Message, "network request failed") {
		t.Errorf("warning message = %q, want the network error cited", w.Message)
	}
}

func TestFindTruncatedRelatedList(t *testing.T) {
	client := newFakeClient().
		on(accountByID, accountRow()).
		on(opportunityFan).
		partial(assetFan, fmt.Errorf("%w: got 1 of 4000 records", model.ErrTruncated),
			model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"}).
		on(contactFan)

	report, err := New(client, Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if got := len(report.RelatedByLabel("assets")); got != 1 {
		t.Errorf("assets = %d, want the first page kept", got)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", report.Warnings)
	}
	w := report.Warnings[0]
	if w.Kind != model.KindAsset {
		t.Errorf("warning kind = %s, want Asset", w.Kind)
	}
	if !strings.Contains(w.Message, "truncated") {
		t.Errorf("warning message = %q, want truncation cited", w.Message)
	}
}

func TestFindByEmailTruncatedMatches(t *testing.T) {
	client := newFakeClient().
		partial(contactByEmail, fmt.Errorf("%w: got 1 of 4000 records", model.ErrTruncated),
			model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"}).
		on(opportunityFan).
		on(assetFan)

	report, err := New(client, Config{}).Find(context.Background(), "who@example.com")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if report.Root.ID != "0032500001QqQq1AAF" {
		t.Errorf("root id = %q, want the first match", report.Root.ID)
	}
	found := false
	for _, w := range report.Warnings {
		if w.Kind == model.KindContact && strings.Contains(w.Message, "truncated") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a truncation warning", report.Warnings)
	}
}

func TestFindNoLinkedAccount(t *testing.T) {
	client := newFakeClient().
		on(assetByID, model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"})

	report, err := New(client, Config{}).Find(context.Background(), "02i2500000HTaW9AAL")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if len(report.Related) != 0 {
		t.Errorf("related = %v, want none", report.Related)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0].Message, "no account linked") {
		t.Errorf("warnings = %v", report.Warnings)
	}
	if client.callCount() != 1 {
		t.Errorf("remote calls = %d, want 1", client.callCount())
	}
}

func TestFindAccountFetchFails(t *testing.T) {
	client := newFakeClient().
		on(assetByID, model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget", "AccountId": "0012500001Lhk3hAAB"}).
		fail(accountByID, fmt.Errorf("%w: session rejected", model.ErrAuth)).
		on(opportunityFan, model.RawRecord{"Id": "0062500000badWoAAI", "Name": "Renewal"}).
		on(assetFan).
		on(contactFan)

	report, err := New(client, Config{}).Find(context.Background(), "02i2500000HTaW9AAL")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}

	if got := len(report.RelatedByLabel("account")); got != 0 {
		t.Errorf("account group = %d entries, want 0", got)
	}
	if got := len(report.RelatedByLabel("opportunities")); got != 1 {
		t.Errorf("opportunities = %d, want 1", got)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0].Message, "cannot fetch account") {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestFindCustomSearchFields(t *testing.T) {
	fields, err := model.NewFieldConfig(nil, []string{"Contact.npe01__HomeEmail__c"})
	if err != nil {
		t.Fatalf("NewFieldConfig returned error: %v", err)
	}

	stmt := "SELECT Id, Email, FirstName, LastName, CreatedDate, LastModifiedDate, AccountId " +
		"FROM Contact WHERE (Email = 'who@example.com' OR npe01__HomeEmail__c = 'who@example.com') " +
		"ORDER BY LastModifiedDate DESC"
	client := newFakeClient().
		on(stmt, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"})

	report, err := New(client, Config{Fields: fields}).Find(context.Background(), "who@example.com")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if report.Root.ID != "0032500001QqQq1AAF" {
		t.Errorf("root id = %q", report.Root.ID)
	}
}

func TestFindIsDeterministic(t *testing.T) {
	newClient := func() *fakeClient {
		return newFakeClient().
			on(accountByID, accountRow()).
			on(opportunityFan, model.RawRecord{"Id": "0062500000badWoAAI", "Name": "Renewal"}).
			on(assetFan,
				model.RawRecord{"Id": "02i2500000HTaW9AAL", "Name": "Widget"},
				model.RawRecord{"Id": "02i2500000HTaWAAA1", "Name": "Gadget"}).
			on(contactFan, model.RawRecord{"Id": "0032500001QqQq1AAF", "Email": "who@example.com"})
	}

	render := func() []byte {
		t.Helper()
		report, err := New(newClient(), Config{}).Find(context.Background(), "0012500001Lhk3hAAB")
		if err != nil {
			t.Fatalf("Find returned error: %v", err)
		}
		var buf bytes.Buffer
		if err := report.ToJSON(&buf, false); err != nil {
			t.Fatalf("ToJSON returned error: %v", err)
		}
		return buf.Bytes()
	}

	first := render()
	for i := 0; i < 5; i++ {
		if next := render(); !bytes.Equal(first, next) {
			t.Fatalf("renderings differ:\n%s\n%s", first, next)
		}
	}
}
