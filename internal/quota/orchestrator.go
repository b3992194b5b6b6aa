// Package quota loads the credentials stored on the management server,
// groups them by provider and keeps the per-credential quota state current.
package quota

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/events"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/antigravity"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/claude"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/codex"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/copilot"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/gemini"
	"github.com/joshuadavidthomas/zerolimit/internal/provider/kiro"
)

// DefaultMaxConcurrent bounds in-flight quota fetches when Config leaves it unset.
const DefaultMaxConcurrent = 5

// Client is the part of the management API the orchestrator needs.
type Client interface {
	apicall.Caller
	ListAuthFiles(ctx context.Context) ([]models.Credential, error)
}

// Config holds orchestrator parameters.
type Config struct {
	MaxConcurrent int
	// Providers limits fetching to these providers. Empty fetches every
	// known provider; other credentials are still listed.
	Providers []provider.Type
}

// Orchestrator owns the section list. Every change replaces the list under
// mu and is published to observers as an immutable snapshot.
type Orchestrator struct {
	client Client
	only   []provider.Type
	sem    chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	sections  []Section
	active    provider.Type
	hasActive bool
	loadGen   uint64
	// listSeq orders credential listings; listApplied is the newest one
	// committed to sections.
	listSeq     uint64
	listApplied uint64
	fileGen     map[string]uint64
	observers   []chan []Section
	onResult    []func(context.Context, FileQuota)
}

// New creates an orchestrator backed by client.
func New(client Client, cfg Config) *Orchestrator {
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = DefaultMaxConcurrent
	}
	return &Orchestrator{
		client:  client,
		only:    slices.Clone(cfg.Providers),
		sem:     make(chan struct{}, n),
		fileGen: make(map[string]uint64),
	}
}

// Sections returns the current section list. Callers must not modify it.
func (o *Orchestrator) Sections() []Section {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sections
}

// Subscribe returns a channel that receives the section list after every
// change. Only the latest unread snapshot is kept. The returned func
// unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan []Section, func()) {
	ch := make(chan []Section, 1)

	o.mu.Lock()
	o.observers = append(o.observers, ch)
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, sub := range o.observers {
				if sub == ch {
					o.observers = append(o.observers[:i], o.observers[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

// OnResult registers fn to run after every completed fetch that was not
// discarded as stale. fn runs on the fetching goroutine.
func (o *Orchestrator) OnResult(fn func(context.Context, FileQuota)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResult = append(o.onResult, fn)
}

// publish must be called with mu held.
func (o *Orchestrator) publish() {
	snapshot := o.sections
	for _, ch := range o.observers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// LoadCredentials lists the credentials, rebuilds the sections and starts a
// quota fetch for every credential of a known provider. It returns once the
// fetches are launched; use Wait to block until they finish.
func (o *Orchestrator) LoadCredentials(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	// The generation only advances once a list is committed, so a failed
	// reload leaves in-flight fetches of the current list valid.
	o.mu.Lock()
	o.listSeq++
	seq := o.listSeq
	o.mu.Unlock()

	creds, err := o.client.ListAuthFiles(ctx)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	sections := groupSections(creds)
	for si := range sections {
		if !o.fetches(sections[si].Provider) {
			continue
		}
		for fi := range sections[si].Files {
			sections[si].Files[fi].Loading = true
		}
	}

	o.mu.Lock()
	if seq < o.listApplied {
		o.mu.Unlock()
		logger.Debug("discarding stale credential list", "seq", seq)
		return nil
	}
	o.listApplied = seq
	o.loadGen++
	gen := o.loadGen
	o.sections = sections
	o.publish()
	o.mu.Unlock()

	logger.Debug("loaded credentials", "count", len(creds), "sections", len(sections))

	for _, s := range sections {
		if !o.fetches(s.Provider) {
			continue
		}
		for _, f := range s.Files {
			o.launch(ctx, gen, f.FileID, f.Credential)
		}
	}
	return nil
}

func (o *Orchestrator) fetches(t provider.Type) bool {
	if t == provider.Unknown {
		return false
	}
	return len(o.only) == 0 || slices.Contains(o.only, t)
}

func (o *Orchestrator) launch(ctx context.Context, gen uint64, fileID string, cred models.Credential) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-o.sem }()
		o.fetch(ctx, gen, fileID, cred)
	}()
	runtime.Gosched()
}

// Wait blocks until every launched fetch has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// FetchQuota refreshes one credential synchronously.
func (o *Orchestrator) FetchQuota(ctx context.Context, fileID string, cred models.Credential) {
	o.mu.Lock()
	gen := o.loadGen
	o.mu.Unlock()
	o.fetch(ctx, gen, fileID, cred)
}

// RefreshFile refreshes the credential tracked under fileID. It reports
// false when no such credential is loaded.
func (o *Orchestrator) RefreshFile(ctx context.Context, fileID string) bool {
	o.mu.Lock()
	f, ok := findFile(o.sections, fileID)
	gen := o.loadGen
	o.mu.Unlock()
	if !ok {
		return false
	}
	o.wg.Add(1)
	defer o.wg.Done()
	o.fetch(ctx, gen, f.FileID, f.Credential)
	return true
}

func (o *Orchestrator) fetch(ctx context.Context, loadGen uint64, fileID string, cred models.Credential) {
	logger := logging.FromContext(ctx)

	o.mu.Lock()
	if loadGen != o.loadGen {
		o.mu.Unlock()
		return
	}
	t := provider.Classify(cred)
	if t == provider.Unknown {
		if f, ok := findFile(o.sections, fileID); ok {
			t = f.Type()
		}
	}
	if t == provider.Unknown {
		o.mu.Unlock()
		return
	}
	o.fileGen[fileID]++
	gen := o.fileGen[fileID]
	sections, ok := withFile(o.sections, t, fileID, func(f FileQuota) FileQuota {
		f.Loading = true
		f.Error = ""
		return f
	})
	if !ok {
		o.mu.Unlock()
		return
	}
	o.sections = sections
	o.publish()
	o.mu.Unlock()

	start := time.Now()
	var result models.QuotaResult
	authIndex := AuthIndex(cred)
	if authIndex == "" {
		result = models.Failed("Missing auth index")
	} else {
		result = o.dispatch(ctx, t, authIndex, cred)
	}
	logger.Debug("quota fetched",
		"provider", t.ID(),
		"file", fileID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", result.Error,
	)

	o.mu.Lock()
	if loadGen != o.loadGen || gen != o.fileGen[fileID] {
		o.mu.Unlock()
		logger.Debug("discarding stale quota result", "provider", t.ID(), "file", fileID)
		return
	}
	var updated FileQuota
	sections, ok = withFile(o.sections, t, fileID, func(f FileQuota) FileQuota {
		updated = applyResult(f, t, result)
		return updated
	})
	if !ok {
		o.mu.Unlock()
		return
	}
	o.sections = sections
	o.publish()
	hooks := o.onResult
	o.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, updated)
	}
}

func applyResult(f FileQuota, t provider.Type, r models.QuotaResult) FileQuota {
	next := FileQuota{
		FileID:      f.FileID,
		Filename:    f.Filename,
		Provider:    f.Provider,
		ProviderKey: f.ProviderKey,
		Credential:  f.Credential,
		Error:       r.Error,
		Models:      r.Models,
		Plan:        r.Plan,
		Email:       r.Email,
	}
	if t == provider.Codex {
		next.Limits = r.Models
	}
	return next
}

func (o *Orchestrator) dispatch(ctx context.Context, t provider.Type, authIndex string, cred models.Credential) models.QuotaResult {
	switch t {
	case provider.Antigravity:
		return antigravity.Fetch(ctx, o.client, authIndex, cred)
	case provider.Codex:
		return codex.Fetch(ctx, o.client, authIndex, cred)
	case provider.GeminiCLI:
		return gemini.Fetch(ctx, o.client, authIndex, cred)
	case provider.Kiro:
		return kiro.Fetch(ctx, o.client, authIndex, cred)
	case provider.Copilot:
		return copilot.Fetch(ctx, o.client, authIndex, cred)
	case provider.Anthropic:
		return claude.Fetch(ctx, o.client, authIndex, cred)
	case provider.Unknown:
		return models.Failed("Unsupported provider")
	}
	return models.Failed("Unsupported provider")
}

// SetActiveProvider selects the tab RefreshDisplayed works on.
func (o *Orchestrator) SetActiveProvider(t provider.Type) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = t
	o.hasActive = true
}

// ActiveProvider returns the selected tab. When nothing is selected, or the
// selection has no credentials, it falls back to Antigravity and then to the
// first non-empty section.
func (o *Orchestrator) ActiveProvider() provider.Type {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeLocked()
}

func (o *Orchestrator) activeLocked() provider.Type {
	want := provider.Antigravity
	if o.hasActive {
		want = o.active
	}
	for _, s := range o.sections {
		if s.Provider == want {
			return want
		}
	}
	if len(o.sections) > 0 {
		return o.sections[0].Provider
	}
	return want
}

// RefreshDisplayed refetches every credential of the active provider.
func (o *Orchestrator) RefreshDisplayed(ctx context.Context) {
	o.mu.Lock()
	active := o.activeLocked()
	gen := o.loadGen
	var files []FileQuota
	for _, s := range o.sections {
		if s.Provider == active {
			files = s.Files
		}
	}
	o.mu.Unlock()

	if active == provider.Unknown {
		return
	}
	for _, f := range files {
		o.launch(ctx, gen, f.FileID, f.Credential)
	}
}

// Watch reloads whenever a reload is requested on bus, until ctx ends.
func (o *Orchestrator) Watch(ctx context.Context, bus *events.Bus) {
	logger := logging.FromContext(ctx)
	sub := bus.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-sub.C:
			if !ok {
				return
			}
			logger.Info("reloading credentials", "reason", req.Reason)
			if err := o.LoadCredentials(ctx); err != nil {
				logger.Warn("reload failed", "err", err)
			}
		}
	}
}
