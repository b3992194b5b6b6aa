// Package deviceflow runs the GitHub OAuth device flow locally and uploads
// the resulting token to the management server as a Copilot auth file. It is
// the fallback for servers that cannot start a Copilot login themselves.
package deviceflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/httpclient"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

// GitHub OAuth app used by Copilot clients.
const (
	ClientID = "Iv1.b507a08c87ecfe98"
	Scope    = "read:user user:email"

	grantType = "urn:ietf:params:oauth:grant-type:device_code"
	fileType  = "github-copilot"
)

// Polling limits.
const (
	DefaultMinInterval  = 5 * time.Second
	DefaultMaxDuration  = 15 * time.Minute
	DefaultSlowDownStep = 5 * time.Second
)

var (
	ErrExpired      = errors.New("Device code expired. Please try again.")
	ErrAccessDenied = errors.New("Access denied by user.")
	ErrTimeout      = errors.New("Timed out waiting for authorization.")
	ErrEmptyToken   = errors.New("Empty access token received")
)

// Endpoints are the GitHub URLs the flow talks to.
type Endpoints struct {
	DeviceCodeURL string
	TokenURL      string
	UserURL       string
}

// GitHub is the production endpoint set.
var GitHub = Endpoints{
	DeviceCodeURL: "https://github.com/login/device/code",
	TokenURL:      "https://github.com/login/oauth/access_token",
	UserURL:       "https://api.github.com/user",
}

// Code is the device code grant shown to the user.
type Code struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// tokenResponse can carry either a token or an OAuth error.
type tokenResponse struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Token is a granted access token.
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// User is the GitHub profile the token belongs to.
type User struct {
	Login string `json:"login"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Storage is the auth file uploaded to the management server.
type Storage struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
}

// Uploader stores an auth file on the management server.
type Uploader interface {
	UploadAuthFile(ctx context.Context, name string, content []byte) error
}

// Flow talks to GitHub. The exported fields may be changed before use.
type Flow struct {
	Endpoints   Endpoints
	MinInterval time.Duration
	MaxDuration time.Duration
	// SlowDownStep is added to the interval on every slow_down reply.
	SlowDownStep time.Duration

	client *httpclient.Client
}

// New returns a Flow against GitHub.
func New(client *httpclient.Client) *Flow {
	if client == nil {
		client = httpclient.New()
	}
	return &Flow{
		Endpoints:    GitHub,
		MinInterval:  DefaultMinInterval,
		MaxDuration:  DefaultMaxDuration,
		SlowDownStep: DefaultSlowDownStep,
		client:       client,
	}
}

func acceptJSON() httpclient.RequestOption {
	return httpclient.WithHeader("Accept", "application/json")
}

// RequestCode starts a device authorization.
func (f *Flow) RequestCode(ctx context.Context) (*Code, error) {
	var code Code
	resp, err := f.client.PostFormCtx(ctx, f.Endpoints.DeviceCodeURL, map[string]string{
		"client_id": ClientID,
		"scope":     Scope,
	}, &code, acceptJSON())
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("requesting device code: HTTP %d %s", resp.StatusCode, httpclient.SummarizeBody(resp.Body))
	}
	if resp.JSONErr != nil {
		return nil, fmt.Errorf("invalid device code response: %w", resp.JSONErr)
	}
	if code.DeviceCode == "" || code.UserCode == "" {
		return nil, errors.New("invalid device code response: missing device or user code")
	}
	return &code, nil
}

// PollToken waits for the user to approve code. It polls no faster than
// MinInterval and gives up after the shorter of the code's lifetime and
// MaxDuration.
func (f *Flow) PollToken(ctx context.Context, code *Code) (*Token, error) {
	logger := logging.FromContext(ctx)

	interval := max(time.Duration(code.Interval)*time.Second, f.MinInterval)
	lifetime := f.MaxDuration
	if code.ExpiresIn > 0 {
		lifetime = min(time.Duration(code.ExpiresIn)*time.Second, f.MaxDuration)
	}
	deadline := time.Now().Add(lifetime)

	form := map[string]string{
		"client_id":   ClientID,
		"device_code": code.DeviceCode,
		"grant_type":  grantType,
	}

	for time.Now().Before(deadline) {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		var tr tokenResponse
		resp, err := f.client.PostFormCtx(ctx, f.Endpoints.TokenURL, form, &tr, acceptJSON())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Debug("device token poll failed", "err", err)
			continue
		}
		if resp.JSONErr != nil {
			logger.Debug("device token poll returned invalid JSON", "status", resp.StatusCode)
			continue
		}

		switch tr.Error {
		case "":
		case "authorization_pending":
			continue
		case "slow_down":
			interval += f.SlowDownStep
			logger.Debug("device token poll slowed down", "interval", interval)
			continue
		case "expired_token":
			return nil, ErrExpired
		case "access_denied":
			return nil, ErrAccessDenied
		default:
			desc := tr.ErrorDescription
			if desc == "" {
				desc = tr.Error
			}
			return nil, fmt.Errorf("token exchange failed: %s", desc)
		}

		if tr.AccessToken == "" {
			return nil, ErrEmptyToken
		}
		tok := &Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType, Scope: tr.Scope}
		if tok.TokenType == "" {
			tok.TokenType = "bearer"
		}
		return tok, nil
	}
	return nil, ErrTimeout
}

// FetchUser loads the profile of the token's owner.
func (f *Flow) FetchUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	resp, err := f.client.GetJSONCtx(ctx, f.Endpoints.UserURL, &user,
		httpclient.WithHeader("Authorization", "token "+accessToken),
		httpclient.WithHeader("Accept", "application/vnd.github+json"),
		httpclient.WithHeader("User-Agent", "zerolimit"),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching GitHub user: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("fetching GitHub user: HTTP %d", resp.StatusCode)
	}
	if resp.JSONErr != nil {
		return nil, fmt.Errorf("invalid GitHub user response: %w", resp.JSONErr)
	}
	return &user, nil
}

// BuildStorage assembles the auth file for tok and returns it with its
// file name.
func BuildStorage(tok Token, user User) (Storage, string) {
	username := user.Login
	if username == "" {
		username = "github-user"
	}
	return Storage{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       tok.Scope,
		Username:    username,
		Email:       user.Email,
		Name:        user.Name,
		Type:        fileType,
	}, "github-copilot-" + username + ".json"
}

// Complete polls for the token, looks up the user and uploads the auth file.
// It returns the uploaded file name.
func (f *Flow) Complete(ctx context.Context, code *Code, up Uploader) (string, error) {
	tok, err := f.PollToken(ctx, code)
	if err != nil {
		return "", err
	}
	user, err := f.FetchUser(ctx, tok.AccessToken)
	if err != nil {
		return "", err
	}
	storage, name := BuildStorage(*tok, *user)
	content, err := json.MarshalIndent(storage, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding auth file: %w", err)
	}
	if err := up.UploadAuthFile(ctx, name, content); err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	logging.FromContext(ctx).Info("uploaded copilot credential", "file", name)
	return name, nil
}
