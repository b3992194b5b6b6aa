package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "zerolimit"

func ConfigDir() string {
	if v := os.Getenv("ZEROLIMIT_CONFIG_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

func DataDir() string {
	if v := os.Getenv("ZEROLIMIT_DATA_DIR"); v != "" {
		return v
	}
	return filepath.Join(xdg.DataHome, appName)
}

func ConfigFile() string  { return filepath.Join(ConfigDir(), "config.toml") }
func HistoryFile() string { return filepath.Join(DataDir(), "history.db") }
