package connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/management"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// KiroPath is the server's own Kiro login page, relative to the API base.
const KiroPath = "/v0/oauth/kiro"

// credentialMatcher selects the credentials a snapshot poll counts.
type credentialMatcher func(models.Credential) bool

func nameContains(sub string) credentialMatcher {
	return func(c models.Credential) bool {
		return strings.Contains(strings.ToLower(c.Provider), sub) ||
			strings.Contains(strings.ToLower(c.Filename), sub)
	}
}

func (m *Machine) countCredentials(ctx context.Context, match credentialMatcher) (int, error) {
	creds, err := m.server.ListAuthFiles(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range creds {
		if match(c) {
			n++
		}
	}
	return n, nil
}

// snapshotPoll succeeds once more matching credentials exist than baseline.
// List errors are ignored; the next tick retries.
func (m *Machine) snapshotPoll(match credentialMatcher, baseline int) pollFunc {
	return func(ctx context.Context) (bool, string) {
		n, err := m.countCredentials(ctx, match)
		if err != nil {
			logging.FromContext(ctx).Debug("snapshot poll failed", "err", err)
			return false, ""
		}
		return n > baseline, ""
	}
}

// statePoll follows the server's status for a state token. Poll errors are
// ignored; the next tick retries.
func (m *Machine) statePoll(state string) pollFunc {
	return func(ctx context.Context) (bool, string) {
		st, err := m.server.AuthStatus(ctx, state)
		if err != nil {
			logging.FromContext(ctx).Debug("auth status poll failed", "err", err)
			return false, ""
		}
		if st.Done() {
			return true, ""
		}
		if msg, failed := st.Err(); failed {
			return true, msg
		}
		return false, ""
	}
}

func (m *Machine) startKiro(ctx context.Context, attempt string) (State, error) {
	match := nameContains("kiro")
	baseline, err := m.countCredentials(ctx, match)
	if err != nil {
		return m.failAttempt(provider.Kiro, attempt, err)
	}

	url := m.server.APIBase() + KiroPath
	m.openURL(ctx, url)
	st := m.step(provider.Kiro, attempt, func(s *State) {
		s.Status = StatusPolling
		s.URL = url
	})
	m.spawn(ctx, provider.Kiro, attempt, m.poll(m.cfg.KiroPoll, m.snapshotPoll(match, baseline)))
	return st, nil
}

func (m *Machine) startCopilot(ctx context.Context, attempt string, opts StartOptions) (State, error) {
	if opts.Local {
		return m.startLocalDevice(ctx, attempt)
	}

	start, err := m.server.StartAuth(ctx, provider.Copilot, management.AuthOptions{})
	if err != nil {
		var apiErr *management.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			logging.FromContext(ctx).Info("server cannot start copilot auth, using local device flow")
			return m.startLocalDevice(ctx, attempt)
		}
		return m.failAttempt(provider.Copilot, attempt, err)
	}

	url := start.URL
	if url == "" {
		url = start.VerificationURI
	}
	if url == "" {
		return m.failAttempt(provider.Copilot, attempt, ErrNoVerificationURL)
	}

	st := m.step(provider.Copilot, attempt, func(s *State) {
		s.Status = StatusPolling
		s.URL = url
		s.StateToken = start.State
		s.UserCode = start.UserCode
	})
	m.openURL(ctx, url)

	if start.State != "" {
		m.spawn(ctx, provider.Copilot, attempt, m.poll(m.cfg.StatePoll, m.statePoll(start.State)))
		return st, nil
	}

	match := nameContains("github")
	baseline, err := m.countCredentials(ctx, match)
	if err != nil {
		return m.failAttempt(provider.Copilot, attempt, err)
	}
	m.spawn(ctx, provider.Copilot, attempt, m.poll(m.cfg.SnapshotPoll, m.snapshotPoll(match, baseline)))
	return st, nil
}

// startLocalDevice runs the GitHub device flow from this machine and uploads
// the token as a new auth file.
func (m *Machine) startLocalDevice(ctx context.Context, attempt string) (State, error) {
	code, err := m.cfg.Device.RequestCode(ctx)
	if err != nil {
		return m.failAttempt(provider.Copilot, attempt, err)
	}

	st := m.step(provider.Copilot, attempt, func(s *State) {
		s.Status = StatusPolling
		s.URL = code.VerificationURI
		s.UserCode = code.UserCode
		s.DeviceCode = code.DeviceCode
		s.ExpiresIn = code.ExpiresIn
		s.Interval = code.Interval
	})
	m.openURL(ctx, code.VerificationURI)

	m.spawn(ctx, provider.Copilot, attempt, func(ctx context.Context) (bool, string) {
		_, err := m.cfg.Device.Complete(ctx, code, m.server)
		switch {
		case err == nil:
			return true, ""
		case ctx.Err() != nil:
			return false, ""
		}
		return true, err.Error()
	})
	return st, nil
}

func (m *Machine) startStandard(ctx context.Context, p provider.Type, attempt string, opts StartOptions) (State, error) {
	start, err := m.server.StartAuth(ctx, p, management.AuthOptions{ProjectID: opts.ProjectID})
	if err != nil {
		return m.failAttempt(p, attempt, err)
	}

	url := start.URL
	if url == "" {
		url = start.AuthURL
	}
	if url == "" {
		return m.failAttempt(p, attempt, ErrNoAuthURL)
	}

	st := m.step(p, attempt, func(s *State) {
		s.Status = StatusPolling
		s.URL = url
		s.StateToken = start.State
	})
	m.openURL(ctx, url)

	// Without a state token the flow completes through SubmitCallback.
	if start.State != "" {
		m.spawn(ctx, p, attempt, m.poll(m.cfg.StatePoll, m.statePoll(start.State)))
	}
	return st, nil
}
