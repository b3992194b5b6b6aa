package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/prompt"
	"github.com/joshuadavidthomas/zerolimit/internal/testenv"
)

// reloadConfig forces a config reload. Used by tests that modify
// ZEROLIMIT_CONFIG_DIR via t.Setenv before exercising commands.
func reloadConfig() {
	_, _ = config.Reload()
}

func newVerboseContext(logBuf *bytes.Buffer) context.Context {
	l := logging.NewLogger(logBuf)
	logging.Configure(l, logging.Flags{Verbose: true})
	return logging.WithLogger(context.Background(), l)
}

func newDefaultContext(logBuf *bytes.Buffer) context.Context {
	l := logging.NewLogger(logBuf)
	logging.Configure(l, logging.Flags{})
	return logging.WithLogger(context.Background(), l)
}

// setupCLI isolates config and data directories, resets the global output
// flags and captures command output.
func setupCLI(t *testing.T) *bytes.Buffer {
	t.Helper()
	dir := t.TempDir()
	testenv.ApplySameDir(t.Setenv, dir)
	config.Override(t, config.DefaultConfig())

	flags := []*bool{&jsonOutput, &yamlOutput, &quiet, &verbose, &noColor, &showPrivate}
	saved := make([]bool, len(flags))
	for i, f := range flags {
		saved[i] = *f
		*f = false
	}

	var buf bytes.Buffer
	outWriter = &buf
	t.Cleanup(func() {
		outWriter = os.Stdout
		for i, f := range flags {
			*f = saved[i]
		}
	})
	return &buf
}

// setFlag sets a global flag variable for the duration of the test.
func setFlag(t *testing.T, flag *bool, v bool) {
	t.Helper()
	old := *flag
	*flag = v
	t.Cleanup(func() { *flag = old })
}

func usePrompt(t *testing.T, mock *prompt.Mock) {
	t.Helper()
	old := prompt.Default
	prompt.SetDefault(mock)
	t.Cleanup(func() { prompt.SetDefault(old) })
}

// fakeManagement is a minimal management API. Handlers are keyed by path
// below /v0/management.
type fakeManagement struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

func newFakeManagement(t *testing.T) *fakeManagement {
	t.Helper()
	f := &fakeManagement{t: t, handlers: make(map[string]http.HandlerFunc)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeManagement) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	h := f.handlers[r.URL.Path]
	f.mu.Unlock()
	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeManagement) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers["/v0/management"+path] = h
}

// handleJSON serves v as the response of path.
func (f *fakeManagement) handleJSON(path string, v any) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	})
}

// requestsTo returns the recorded requests with the given method and path.
func (f *fakeManagement) requestsTo(method, path string) []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*http.Request
	for _, r := range f.requests {
		if r.Method == method && r.URL.Path == "/v0/management"+path {
			out = append(out, r)
		}
	}
	return out
}

// use points the global config at the fake server.
func (f *fakeManagement) use(t *testing.T) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.APIBase = f.srv.URL
	cfg.Server.ManagementKey = "secret"
	cfg.Server.Timeout = 5
	config.Override(t, cfg)
}

// withFiles serves the given credentials from GET /auth-files.
func (f *fakeManagement) withFiles(files ...map[string]any) {
	f.handleJSON("/auth-files", map[string]any{"files": files})
}

// apiCallBody wraps an upstream body in the api-call gateway envelope.
func apiCallBody(status int, body string) map[string]any {
	return map[string]any{"status_code": status, "body": json.RawMessage(body)}
}
