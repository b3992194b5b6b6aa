// Package management is the client for the proxy server's management API:
// stored credentials, the signed call gateway, OAuth start/status/callback
// and server logs.
package management

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/httpclient"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/usage"
)

const (
	// Prefix is appended to the normalized API base for every call.
	Prefix = "/v0/management"
	// DefaultAPIBase is where a locally running proxy listens.
	DefaultAPIBase = "http://localhost:8317"
)

var (
	versionHeaders   = []string{"x-cpa-version", "x-server-version"}
	buildDateHeaders = []string{"x-cpa-build-date", "x-server-build-date"}
)

// APIError is a non-2xx management response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ServerInfo is the version reported in response headers. Fields are empty
// until a response carried them.
type ServerInfo struct {
	Version   string `json:"version,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Client talks to one management server.
type Client struct {
	apiBase string
	key     string
	http    *httpclient.Client

	mu   sync.RWMutex
	info ServerInfo
}

// NewClient creates a client for apiBase, authenticating with key.
// timeoutSeconds <= 0 uses the default timeout.
func NewClient(apiBase, key string, timeoutSeconds float64) *Client {
	return &Client{
		apiBase: NormalizeAPIBase(apiBase),
		key:     key,
		http:    httpclient.NewFromConfig(timeoutSeconds),
	}
}

var managementSuffix = regexp.MustCompile(`(?i)/?v0/management/?$`)

// NormalizeAPIBase trims a user-entered server address to scheme://host[:port],
// dropping a trailing management prefix and slashes and defaulting to http.
func NormalizeAPIBase(raw string) string {
	s := managementSuffix.ReplaceAllString(strings.TrimRight(strings.TrimSpace(raw), "/"), "")
	s = strings.TrimRight(s, "/")
	if s == "" {
		return DefaultAPIBase
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "http://" + s
	}
	return s
}

// APIBase returns the normalized server address without the management prefix.
func (c *Client) APIBase() string {
	return c.apiBase
}

// ServerInfo returns the most recently observed server version.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.apiBase + Prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) options() []httpclient.RequestOption {
	if c.key == "" {
		return nil
	}
	return []httpclient.RequestOption{httpclient.WithBearer(c.key)}
}

// check records version headers and converts failures to *APIError.
func (c *Client) check(ctx context.Context, path string, resp *httpclient.Response) error {
	c.recordInfo(resp)
	if resp.OK() {
		return nil
	}
	var body struct {
		Error   flexjson.String `json:"error"`
		Message flexjson.String `json:"message"`
	}
	flexjson.DecodeObject(resp.Body, &body)
	msg := flexjson.FirstString(body.Error, body.Message).Or("Request failed")
	logging.FromContext(ctx).Debug("management request failed", "path", path, "status", resp.StatusCode, "body", httpclient.SummarizeBody(resp.Body))
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func (c *Client) recordInfo(resp *httpclient.Response) {
	version := firstHeader(resp, versionHeaders)
	buildDate := firstHeader(resp, buildDateHeaders)
	if version == "" && buildDate == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != "" {
		c.info.Version = version
	}
	if buildDate != "" {
		c.info.BuildDate = buildDate
	}
}

func firstHeader(resp *httpclient.Response, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(resp.Header.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// ListAuthFiles returns every stored credential.
func (c *Client) ListAuthFiles(ctx context.Context) ([]models.Credential, error) {
	var out struct {
		Files []models.Credential `json:"files"`
	}
	resp, err := c.http.GetJSONCtx(ctx, c.endpoint("/auth-files", nil), &out, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("listing auth files: %w", err)
	}
	if err := c.check(ctx, "/auth-files", resp); err != nil {
		return nil, err
	}
	if resp.JSONErr != nil {
		return nil, fmt.Errorf("decoding auth files: %w", resp.JSONErr)
	}
	if out.Files == nil {
		out.Files = []models.Credential{}
	}
	return out.Files, nil
}

// DeleteAuthFile deletes one credential by filename.
func (c *Client) DeleteAuthFile(ctx context.Context, name string) error {
	return c.delete(ctx, url.Values{"name": {name}})
}

// DeleteAllAuthFiles deletes every stored credential.
func (c *Client) DeleteAllAuthFiles(ctx context.Context) error {
	return c.delete(ctx, url.Values{"all": {"true"}})
}

func (c *Client) delete(ctx context.Context, query url.Values) error {
	resp, err := c.http.DeleteJSONCtx(ctx, c.endpoint("/auth-files", query), nil, c.options()...)
	if err != nil {
		return fmt.Errorf("deleting auth files: %w", err)
	}
	return c.check(ctx, "/auth-files", resp)
}

// UploadAuthFile stores a credential file under name.
func (c *Client) UploadAuthFile(ctx context.Context, name string, content []byte) error {
	resp, err := c.http.PostFileCtx(ctx, c.endpoint("/auth-files", nil), "file", name, content, nil, c.options()...)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	return c.check(ctx, "/auth-files", resp)
}

// APICall executes req through the signed call gateway. Transport errors are
// returned unwrapped so their text can be shown as-is.
func (c *Client) APICall(ctx context.Context, req apicall.Request) (*apicall.Result, error) {
	resp, err := c.http.PostJSONCtx(ctx, c.endpoint("/api-call", nil), req, nil, c.options()...)
	if err != nil {
		return nil, err
	}
	if err := c.check(ctx, "/api-call", resp); err != nil {
		return nil, err
	}
	return apicall.DecodeResult(resp.Body)
}

// AuthStart is the response of GET /{provider}-auth-url.
type AuthStart struct {
	URL             string `json:"url,omitempty"`
	AuthURL         string `json:"auth_url,omitempty"`
	VerificationURI string `json:"verification_uri,omitempty"`
	State           string `json:"state,omitempty"`
	UserCode        string `json:"user_code,omitempty"`
}

// AuthOptions are the optional start parameters.
type AuthOptions struct {
	ProjectID string
}

// StartAuth asks the server to begin an OAuth flow for p.
func (c *Client) StartAuth(ctx context.Context, p provider.Type, opts AuthOptions) (*AuthStart, error) {
	query := url.Values{}
	if p.WebUI() {
		query.Set("is_webui", "true")
	}
	if p.RequiresProjectID() && opts.ProjectID != "" {
		query.Set("project_id", opts.ProjectID)
	}
	path := "/" + p.ID() + "-auth-url"

	var out AuthStart
	resp, err := c.http.GetJSONCtx(ctx, c.endpoint(path, query), &out, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("starting %s auth: %w", p, err)
	}
	if err := c.check(ctx, path, resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthStatus is the response of GET /get-auth-status.
type AuthStatus struct {
	Status    string        `json:"status"`
	Completed flexjson.Bool `json:"completed"`
	Failed    flexjson.Bool `json:"failed"`
	Error     string        `json:"error,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// Done reports a successful flow.
func (s AuthStatus) Done() bool { return s.Status == "ok" || bool(s.Completed) }

// Err reports a failed flow and its message.
func (s AuthStatus) Err() (string, bool) {
	if s.Status != "error" && !bool(s.Failed) {
		return "", false
	}
	for _, m := range []string{s.Error, s.Message} {
		if m != "" {
			return m, true
		}
	}
	return "Authentication failed", true
}

// AuthStatus polls the state of a started flow.
func (c *Client) AuthStatus(ctx context.Context, state string) (*AuthStatus, error) {
	var out AuthStatus
	resp, err := c.http.GetJSONCtx(ctx, c.endpoint("/get-auth-status", url.Values{"state": {state}}), &out, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("polling auth status: %w", err)
	}
	if err := c.check(ctx, "/get-auth-status", resp); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitCallback hands a pasted redirect URL to the server.
func (c *Client) SubmitCallback(ctx context.Context, p provider.Type, redirectURL string) error {
	body := map[string]string{"provider": p.CallbackID(), "redirect_url": redirectURL}
	resp, err := c.http.PostJSONCtx(ctx, c.endpoint("/oauth-callback", nil), body, nil, c.options()...)
	if err != nil {
		return fmt.Errorf("submitting callback: %w", err)
	}
	return c.check(ctx, "/oauth-callback", resp)
}

// Logs is the response of GET /logs.
type Logs struct {
	Lines           []string `json:"lines" yaml:"lines"`
	LineCount       int      `json:"line-count" yaml:"line_count"`
	LatestTimestamp int64    `json:"latest-timestamp" yaml:"latest_timestamp"`
}

// Logs fetches server log lines newer than after (unix seconds, 0 for all).
func (c *Client) Logs(ctx context.Context, after int64, limit int) (*Logs, error) {
	query := url.Values{}
	if after > 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out Logs
	resp, err := c.http.GetJSONCtx(ctx, c.endpoint("/logs", query), &out, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}
	if err := c.check(ctx, "/logs", resp); err != nil {
		return nil, err
	}
	if resp.JSONErr != nil {
		return nil, fmt.Errorf("decoding logs: %w", resp.JSONErr)
	}
	return &out, nil
}

// Usage fetches the request statistics the server records when
// usage-statistics-enabled is on.
func (c *Client) Usage(ctx context.Context) (*usage.Response, error) {
	var out usage.Response
	resp, err := c.http.GetJSONCtx(ctx, c.endpoint("/usage", nil), &out, c.options()...)
	if err != nil {
		return nil, fmt.Errorf("fetching usage: %w", err)
	}
	if err := c.check(ctx, "/usage", resp); err != nil {
		return nil, err
	}
	if resp.JSONErr != nil {
		return nil, fmt.Errorf("decoding usage: %w", resp.JSONErr)
	}
	return &out, nil
}
