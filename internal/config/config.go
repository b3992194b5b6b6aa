package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/joshuadavidthomas/zerolimit/internal/management"
)

type ServerConfig struct {
	APIBase       string  `toml:"api_base" json:"api_base" yaml:"api_base"`
	ManagementKey string  `toml:"management_key" json:"management_key" yaml:"management_key"`
	Timeout       float64 `toml:"timeout" json:"timeout"`
}

type FetchConfig struct {
	MaxConcurrent int `toml:"max_concurrent" json:"max_concurrent" yaml:"max_concurrent"`
}

// AuthConfig tunes OAuth connection polling and the hints used to tell
// which server edition is installed locally.
type AuthConfig struct {
	StatePollSeconds    float64 `toml:"state_poll_seconds" json:"state_poll_seconds" yaml:"state_poll_seconds"`
	SnapshotPollSeconds float64 `toml:"snapshot_poll_seconds" json:"snapshot_poll_seconds" yaml:"snapshot_poll_seconds"`
	KiroPollSeconds     float64 `toml:"kiro_poll_seconds" json:"kiro_poll_seconds" yaml:"kiro_poll_seconds"`
	ExePath             string  `toml:"exe_path,omitempty" json:"exe_path,omitempty" yaml:"exe_path,omitempty"`
	InstalledVersion    string  `toml:"installed_version,omitempty" json:"installed_version,omitempty" yaml:"installed_version,omitempty"`
}

type DisplayConfig struct {
	Privacy      bool    `toml:"privacy" json:"privacy"`
	LowThreshold float64 `toml:"low_threshold" json:"low_threshold" yaml:"low_threshold"`
	NoColor      bool    `toml:"no_color" json:"no_color" yaml:"no_color"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path,omitempty" json:"path,omitempty" yaml:"path,omitempty"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

type ServeConfig struct {
	Addr           string `toml:"addr" json:"addr"`
	RefreshSeconds int    `toml:"refresh_seconds" json:"refresh_seconds" yaml:"refresh_seconds"`
	WatchDir       string `toml:"watch_dir,omitempty" json:"watch_dir,omitempty" yaml:"watch_dir,omitempty"`
}

type Config struct {
	Server  ServerConfig  `toml:"server" json:"server"`
	Fetch   FetchConfig   `toml:"fetch" json:"fetch"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Display DisplayConfig `toml:"display" json:"display"`
	History HistoryConfig `toml:"history" json:"history"`
	Notify  NotifyConfig  `toml:"notify" json:"notify"`
	Serve   ServeConfig   `toml:"serve" json:"serve"`
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			APIBase: management.DefaultAPIBase,
			Timeout: 30.0,
		},
		Fetch: FetchConfig{
			MaxConcurrent: 5,
		},
		Auth: AuthConfig{
			StatePollSeconds:    3,
			SnapshotPollSeconds: 3,
			KiroPollSeconds:     2,
		},
		Display: DisplayConfig{
			Privacy:      true,
			LowThreshold: 10,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Serve: ServeConfig{
			Addr:           "127.0.0.1:9465",
			RefreshSeconds: 300,
		},
	}
}

func seconds(v float64, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v * float64(time.Second))
}

func (a AuthConfig) StatePoll() time.Duration {
	return seconds(a.StatePollSeconds, 3*time.Second)
}

func (a AuthConfig) SnapshotPoll() time.Duration {
	return seconds(a.SnapshotPollSeconds, 3*time.Second)
}

func (a AuthConfig) KiroPoll() time.Duration {
	return seconds(a.KiroPollSeconds, 2*time.Second)
}

func (s ServeConfig) Refresh() time.Duration {
	return seconds(float64(s.RefreshSeconds), 300*time.Second)
}

// HistoryPath returns the configured history database, defaulting to the
// data directory.
func (c Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return HistoryFile()
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

func Get() Config {
	configMu.RLock()
	if c := globalConfig; c != nil {
		configMu.RUnlock()
		return *c
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig != nil {
		return *globalConfig
	}
	c, _ := Load("")
	globalConfig = &c
	return c
}

func set(cfg Config) {
	configMu.Lock()
	defer configMu.Unlock()
	globalConfig = &cfg
}

// Init loads .env files and then the config file into the global config.
func Init() (Config, error) {
	LoadDotEnv()
	return Reload()
}

func Reload() (Config, error) {
	configMu.Lock()
	defer configMu.Unlock()
	c, err := Load("")
	globalConfig = &c
	return c, err
}

func Load(path string) (Config, error) {
	cfg, err := readFile(path)
	return applyEnvOverrides(cfg), err
}

// readFile decodes the config file over the defaults without applying
// environment overrides. A missing file is not an error.
func readFile(path string) (Config, error) {
	if path == "" {
		path = ConfigFile()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Fetch.MaxConcurrent <= 0 {
		cfg.Fetch.MaxConcurrent = DefaultConfig().Fetch.MaxConcurrent
	}
	cfg.Server.APIBase = management.NormalizeAPIBase(cfg.Server.APIBase)
	return cfg, nil
}

func Save(cfg Config, path string) error {
	if path == "" {
		path = ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	// The file holds the management key.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// SetServer stores a new server address and management key in the config
// file and reloads the global config. An empty key keeps the current one.
func SetServer(apiBase, key string) (Config, error) {
	cfg, err := readFile("")
	if err != nil {
		return cfg, err
	}
	cfg.Server.APIBase = management.NormalizeAPIBase(apiBase)
	if key != "" {
		cfg.Server.ManagementKey = key
	}
	if err := Save(cfg, ""); err != nil {
		return cfg, err
	}
	return Reload()
}

func applyEnvOverrides(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv("ZEROLIMIT_API_BASE")); v != "" {
		cfg.Server.APIBase = v
	}
	if v := os.Getenv("ZEROLIMIT_MANAGEMENT_KEY"); v != "" {
		cfg.Server.ManagementKey = v
	}
	if os.Getenv("ZEROLIMIT_NO_COLOR") != "" {
		cfg.Display.NoColor = true
	}
	cfg.Server.APIBase = management.NormalizeAPIBase(cfg.Server.APIBase)
	return cfg
}
