// Package salesforce implements the remote side of resolution: OAuth login,
// session reuse, and the read-only query endpoint.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/apimgr/sfind/src/model"
)

// ProjectName is set at build time - used for User-Agent
var ProjectName = "sfind"

// Version is set at build time
var Version = "dev"

// Login hosts for the OAuth username-password flow.
const (
	ProductionLoginURL = "https://login.salesforce.com"
	SandboxLoginURL    = "https://test.salesforce.com"

	// DefaultAPIVersion is the REST API version used for queries.
	DefaultAPIVersion = "59.0"

	// sessionTTL bounds how long a cached session is trusted. The token
	// response carries no expiry, so this stays well under the default org
	// session timeout.
	sessionTTL = 30 * time.Minute
)

// Credentials holds the inputs for the username-password OAuth flow.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	SecretToken  string
	Sandbox      bool
}

// Validate checks that every required credential is present.
func (c Credentials) Validate() error {
	missing := ""
	switch {
	case c.ClientID == "":
		missing = "client id"
	case c.ClientSecret == "":
		missing = "client secret"
	case c.Username == "":
		missing = "username"
	case c.Password == "":
		missing = "password"
	}
	if missing != "" {
		return fmt.Errorf("%w: no %s configured", model.ErrAuth, missing)
	}
	return nil
}

// LoginURL returns the OAuth host for these credentials.
func (c Credentials) LoginURL() string {
	if c.Sandbox {
		return SandboxLoginURL
	}
	return ProductionLoginURL
}

// Session is the authenticated state required by query calls.
type Session struct {
	AccessToken string    `json:"access_token"`
	InstanceURL string    `json:"instance_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.InstanceURL != "" && time.Now().Before(s.ExpiresAt)
}

// Client issues authenticated read queries against the query endpoint.
type Client struct {
	Creds      Credentials
	APIVersion string
	HTTPClient *http.Client

	// LoginURL overrides the host derived from Creds; tests point it at a
	// local server.
	LoginURL string

	store   *SessionStore
	session *Session
	mu      sync.RWMutex
}

// NewClient creates a query client. The timeout bounds each remote call's
// network wait. A nil store disables session persistence.
func NewClient(creds Credentials, timeout int, store *SessionStore) *Client {
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		Creds:      creds,
		APIVersion: DefaultAPIVersion,
		HTTPClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		store: store,
	}
}

// tokenResponse is the OAuth token endpoint's success body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
	IssuedAt    string `json:"issued_at"`
}

// oauthError is the OAuth token endpoint's failure body.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// queryResponse is the envelope returned by the query endpoint.
type queryResponse struct {
	TotalSize int              `json:"totalSize"`
	Done      bool             `json:"done"`
	Records   []map[string]any `json:"records"`
}

// apiError is the error body returned by the data API.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Login establishes a session, reusing the cached one when still fresh.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	if c.session.Valid() {
		return nil
	}
	if c.store != nil {
		if sess, ok := c.store.Load(); ok {
			c.session = sess
			return nil
		}
	}

	if err := c.Creds.Validate(); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.Creds.ClientID)
	form.Set("client_secret", c.Creds.ClientSecret)
	form.Set("username", c.Creds.Username)
	form.Set("password", c.Creds.Password+c.Creds.SecretToken)

	loginURL := c.LoginURL
	if loginURL == "" {
		loginURL = c.Creds.LoginURL()
	}

	req, err := http.NewRequestWithContext(ctx, "POST", loginURL+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s-cli/%s", ProjectName, Version))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return networkError("login", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError("login", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return fmt.Errorf("%w: %s: %s", model.ErrAuth, oe.Error, oe.Description)
		}
		return fmt.Errorf("%w: login returned status %d", model.ErrAuth, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("%w: decode token response: %v", model.ErrAuth, err)
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return fmt.Errorf("%w: token response missing access token or instance url", model.ErrAuth)
	}

	c.session = &Session{
		AccessToken: tok.AccessToken,
		InstanceURL: strings.TrimRight(tok.InstanceURL, "/"),
		ExpiresAt:   time.Now().Add(sessionTTL),
	}
	if c.store != nil {
		if err := c.store.Save(c.session); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Logout discards the current session and any persisted copy.
func (c *Client) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	if c.store != nil {
		return c.store.Clear()
	}
	return nil
}

// Session returns the active session, if any.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Query executes one SOQL statement and returns its rows. Zero matches
// yield an empty slice, not an error. A result too large for one response
// page returns the first page's rows together with ErrTruncated. Nested
// relationship objects in the response are flattened into dotted field
// names.
func (c *Client) Query(ctx context.Context, stmt string) ([]model.RawRecord, error) {
	c.mu.Lock()
	err := c.loginLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()

	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s",
		sess.InstanceURL, c.APIVersion, url.QueryEscape(stmt))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s-cli/%s", ProjectName, Version))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, networkError("query", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError("query", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, queryStatusError(resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("%w: decode query response: %v", model.ErrRemoteQuery, err)
	}

	records := make([]model.RawRecord, 0, len(qr.Records))
	for _, raw := range qr.Records {
		records = append(records, flattenRecord(raw))
	}
	if !qr.Done {
		// nextRecordsUrl paging is not followed; the rows of the first page
		// come back marked truncated so callers can flag the missing tail.
		return records, fmt.Errorf("%w: got %d of %d records", model.ErrTruncated, len(records), qr.TotalSize)
	}
	return records, nil
}

// queryStatusError maps a non-200 query response onto the error taxonomy.
func queryStatusError(status int, body []byte) error {
	var apiErrs []apiError
	detail := strings.TrimSpace(string(body))
	code := ""
	if json.Unmarshal(body, &apiErrs) == nil && len(apiErrs) > 0 {
		detail = apiErrs[0].Message
		code = apiErrs[0].ErrorCode
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", model.ErrAuth, detail)
	case status == http.StatusTooManyRequests,
		code == "REQUEST_LIMIT_EXCEEDED":
		return fmt.Errorf("%w: %s", model.ErrRateLimited, detail)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", model.ErrAuth, detail)
	case status >= 500:
		return fmt.Errorf("%w: server error %d: %s", model.ErrNetwork, status, detail)
	default:
		if code != "" {
			return fmt.Errorf("%w: %s: %s", model.ErrRemoteQuery, code, detail)
		}
		return fmt.Errorf("%w: status %d: %s", model.ErrRemoteQuery, status, detail)
	}
}

// networkError wraps transport failures, marking timeouts explicitly.
func networkError(op string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %s timed out", model.ErrNetwork, op)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out", model.ErrNetwork, op)
	}
	return fmt.Errorf("%w: %s: %v", model.ErrNetwork, op, err)
}

// flattenRecord turns one response record into a RawRecord, recursing into
// nested relationship objects so "Product2.Name" style fields keep their
// configured names. The attributes envelope is dropped.
func flattenRecord(raw map[string]any) model.RawRecord {
	out := make(model.RawRecord, len(raw))
	flattenInto(out, "", raw)
	return out
}

func flattenInto(out model.RawRecord, prefix string, raw map[string]any) {
	for key, value := range raw {
		if key == "attributes" {
			continue
		}
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(out, name, nested)
			continue
		}
		out[name] = value
	}
}
