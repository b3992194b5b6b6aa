// Package connect drives the OAuth flows that link new accounts to the
// management server. Each provider has at most one live connection; its
// state moves idle -> waiting -> polling -> success|error.
package connect

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshuadavidthomas/zerolimit/internal/deviceflow"
	"github.com/joshuadavidthomas/zerolimit/internal/events"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/management"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// Status is the phase of a connection.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWaiting Status = "waiting"
	StatusPolling Status = "polling"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition happens without user input.
func (s Status) Terminal() bool {
	return s == StatusIdle || s == StatusSuccess || s == StatusError
}

var (
	ErrPremiumUnsupported = errors.New("this provider requires the plus edition of the proxy server")
	ErrNoAuthURL          = errors.New("No auth URL returned from server")
	ErrNoVerificationURL  = errors.New("No verification URL returned from server")
	ErrUnsupported        = errors.New("provider does not support linking")
)

// State is the observable state of one provider's connection.
type State struct {
	Status     Status `json:"status" yaml:"status"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	StateToken string `json:"state,omitempty" yaml:"state,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	UserCode   string `json:"userCode,omitempty" yaml:"user_code,omitempty"`
	DeviceCode string `json:"deviceCode,omitempty" yaml:"device_code,omitempty"`
	ExpiresIn  int    `json:"expiresIn,omitempty" yaml:"expires_in,omitempty"`
	Interval   int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Attempt    string `json:"attempt,omitempty" yaml:"attempt,omitempty"`
}

// Server is the management API surface the machine drives.
type Server interface {
	StartAuth(ctx context.Context, p provider.Type, opts management.AuthOptions) (*management.AuthStart, error)
	AuthStatus(ctx context.Context, state string) (*management.AuthStatus, error)
	SubmitCallback(ctx context.Context, p provider.Type, redirectURL string) error
	ListAuthFiles(ctx context.Context) ([]models.Credential, error)
	UploadAuthFile(ctx context.Context, name string, content []byte) error
	ServerInfo() management.ServerInfo
	APIBase() string
}

// DeviceFlow runs a local GitHub device authorization.
type DeviceFlow interface {
	RequestCode(ctx context.Context) (*deviceflow.Code, error)
	Complete(ctx context.Context, code *deviceflow.Code, up deviceflow.Uploader) (string, error)
}

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(title, message string) error
}

// Config tunes the machine. Zero durations use the defaults.
type Config struct {
	StatePoll    time.Duration
	SnapshotPoll time.Duration
	KiroPoll     time.Duration
	Capability   Capability

	// OpenURL opens a browser; failures are logged and otherwise ignored.
	OpenURL  func(string) error
	Device   DeviceFlow
	Bus      *events.Bus
	Notifier Notifier
}

// Default poll intervals.
const (
	DefaultStatePoll    = 3 * time.Second
	DefaultSnapshotPoll = 3 * time.Second
	DefaultKiroPoll     = 2 * time.Second
)

// StartOptions are per-attempt options.
type StartOptions struct {
	ProjectID string
	// Local forces the local device flow for Copilot.
	Local bool
}

type task struct {
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Machine owns every provider's connection state and poll task.
type Machine struct {
	server Server
	cfg    Config
	wg     sync.WaitGroup

	mu      sync.Mutex
	states  map[provider.Type]State
	tasks   map[provider.Type]*task
	changed chan struct{}
	closed  bool
}

// New creates a machine for server.
func New(server Server, cfg Config) *Machine {
	if cfg.StatePoll <= 0 {
		cfg.StatePoll = DefaultStatePoll
	}
	if cfg.SnapshotPoll <= 0 {
		cfg.SnapshotPoll = DefaultSnapshotPoll
	}
	if cfg.KiroPoll <= 0 {
		cfg.KiroPoll = DefaultKiroPoll
	}
	if cfg.OpenURL == nil {
		cfg.OpenURL = deviceflow.OpenBrowser
	}
	if cfg.Device == nil {
		cfg.Device = deviceflow.New(nil)
	}
	return &Machine{
		server:  server,
		cfg:     cfg,
		states:  make(map[provider.Type]State),
		tasks:   make(map[provider.Type]*task),
		changed: make(chan struct{}),
	}
}

// State returns the connection state of p. Providers never started are idle.
func (m *Machine) State(p provider.Type) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(p)
}

func (m *Machine) stateLocked(p provider.Type) State {
	if s, ok := m.states[p]; ok {
		return s
	}
	return State{Status: StatusIdle}
}

// States returns every known provider's state keyed by provider id.
func (m *Machine) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(provider.All))
	for _, p := range provider.All {
		out[p.ID()] = m.stateLocked(p)
	}
	return out
}

// update merges fn's changes into p's state and wakes Await callers. Must be
// called with mu held.
func (m *Machine) update(p provider.Type, fn func(*State)) State {
	s := m.stateLocked(p)
	fn(&s)
	m.states[p] = s
	close(m.changed)
	m.changed = make(chan struct{})
	return s
}

func (m *Machine) set(p provider.Type, fn func(*State)) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(p, fn)
}

func (m *Machine) fail(p provider.Type, err error) (State, error) {
	st := m.set(p, func(s *State) {
		s.Status = StatusError
		s.Error = err.Error()
	})
	return st, err
}

// step applies fn only while attempt is p's current attempt, so a flow
// superseded by a newer start or a cancel cannot overwrite its state.
func (m *Machine) step(p provider.Type, attempt string, fn func(*State)) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.stateLocked(p); s.Attempt != attempt || s.Status == StatusIdle {
		return s
	}
	return m.update(p, fn)
}

func (m *Machine) failAttempt(p provider.Type, attempt string, err error) (State, error) {
	st := m.step(p, attempt, func(s *State) {
		s.Status = StatusError
		s.Error = err.Error()
	})
	return st, err
}

// stopLocked cancels p's poll task. Must be called with mu held.
func (m *Machine) stopLocked(p provider.Type) {
	if t, ok := m.tasks[p]; ok {
		t.cancel()
		delete(m.tasks, p)
	}
}

// Await blocks until p's state is terminal or ctx ends.
func (m *Machine) Await(ctx context.Context, p provider.Type) (State, error) {
	for {
		m.mu.Lock()
		s := m.stateLocked(p)
		ch := m.changed
		m.mu.Unlock()

		if s.Status.Terminal() {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ch:
		}
	}
}

// StartAuth begins linking p. Any live task for p is cancelled first. The
// returned state is the one reached once the flow is started, normally
// polling; the poll itself continues in the background.
func (m *Machine) StartAuth(ctx context.Context, p provider.Type, opts StartOptions) (State, error) {
	logger := logging.FromContext(ctx)

	if !m.cfg.Capability.Allows(p, m.server.ServerInfo()) {
		m.mu.Lock()
		m.stopLocked(p)
		st := m.update(p, func(s *State) {
			*s = State{Status: StatusError, Error: ErrPremiumUnsupported.Error()}
		})
		m.mu.Unlock()
		return st, ErrPremiumUnsupported
	}

	attempt := uuid.NewString()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return State{Status: StatusIdle}, errors.New("connection machine closed")
	}
	m.stopLocked(p)
	m.update(p, func(s *State) {
		*s = State{Status: StatusWaiting, Attempt: attempt}
	})
	m.mu.Unlock()

	logger.Info("starting auth", "provider", p.ID(), "attempt", attempt)

	switch p {
	case provider.Kiro:
		return m.startKiro(ctx, attempt)
	case provider.Copilot:
		return m.startCopilot(ctx, attempt, opts)
	case provider.Antigravity, provider.Codex, provider.GeminiCLI, provider.Anthropic:
		return m.startStandard(ctx, p, attempt, opts)
	case provider.Unknown:
		return m.fail(p, ErrUnsupported)
	}
	return m.fail(p, ErrUnsupported)
}

// Cancel stops p's poll task and returns it to idle.
func (m *Machine) Cancel(p provider.Type) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(p)
	m.update(p, func(s *State) { s.Status = StatusIdle })
}

// SubmitCallback hands a pasted redirect URL to the server. On success it
// behaves like a successful poll.
func (m *Machine) SubmitCallback(ctx context.Context, p provider.Type, redirectURL string) error {
	m.set(p, func(s *State) { s.Status = StatusWaiting })

	if err := m.server.SubmitCallback(ctx, p, redirectURL); err != nil {
		_, err = m.fail(p, err)
		return err
	}

	m.mu.Lock()
	m.stopLocked(p)
	m.update(p, func(s *State) {
		s.Status = StatusSuccess
		s.Error = ""
	})
	m.mu.Unlock()
	m.connected(ctx, p)
	return nil
}

// Close cancels every live task and waits for them to exit.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	for p := range m.tasks {
		m.stopLocked(p)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Machine) connected(ctx context.Context, p provider.Type) {
	logging.FromContext(ctx).Info("provider connected", "provider", p.ID())
	if m.cfg.Bus != nil {
		m.cfg.Bus.RequestReload("connected " + p.ID())
	}
	if m.cfg.Notifier != nil {
		if err := m.cfg.Notifier.Notify("zerolimit", p.DisplayName()+" connected successfully"); err != nil {
			logging.FromContext(ctx).Debug("notification failed", "err", err)
		}
	}
}

func (m *Machine) openURL(ctx context.Context, url string) {
	if err := m.cfg.OpenURL(url); err != nil {
		logging.FromContext(ctx).Warn("could not open browser", "url", url, "err", err)
	}
}

// pollFunc runs one tick. finished ends the task; a non-empty errMsg makes
// the outcome an error.
type pollFunc func(ctx context.Context) (finished bool, errMsg string)

// spawn starts p's background task unless attempt is no longer current.
// run returns the outcome the same way pollFunc does.
func (m *Machine) spawn(ctx context.Context, p provider.Type, attempt string, run func(ctx context.Context) (bool, string)) {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &task{cancel: cancel, done: taskCtx.Done()}

	m.mu.Lock()
	if st := m.stateLocked(p); m.closed || st.Attempt != attempt || st.Status != StatusPolling {
		m.mu.Unlock()
		cancel()
		return
	}
	m.tasks[p] = t
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()
		finished, errMsg := run(taskCtx)
		if !finished {
			return
		}
		m.finish(taskCtx, p, t, errMsg)
	}()
}

func (m *Machine) poll(interval time.Duration, tick pollFunc) func(context.Context) (bool, string) {
	return func(ctx context.Context) (bool, string) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return false, ""
			case <-ticker.C:
			}
			if finished, errMsg := tick(ctx); finished {
				return true, errMsg
			}
		}
	}
}

// finish applies a task's outcome if the task is still current.
func (m *Machine) finish(ctx context.Context, p provider.Type, t *task, errMsg string) {
	m.mu.Lock()
	if m.tasks[p] != t {
		m.mu.Unlock()
		logging.FromContext(ctx).Debug("dropping result of cancelled task", "provider", p.ID())
		return
	}
	delete(m.tasks, p)
	m.update(p, func(s *State) {
		if errMsg != "" {
			s.Status = StatusError
			s.Error = errMsg
			return
		}
		s.Status = StatusSuccess
		s.Error = ""
	})
	m.mu.Unlock()

	if errMsg != "" {
		logging.FromContext(ctx).Warn("auth failed", "provider", p.ID(), "err", errMsg)
		return
	}
	m.connected(ctx, p)
}
