package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles lists the .env files consulted before the config is read. The
// working directory comes first so it can point ZEROLIMIT_CONFIG_DIR
// somewhere else.
func envFiles() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	return paths
}

// LoadDotEnv loads every .env file that exists into the environment.
// Variables that are already set keep their value.
func LoadDotEnv() []string {
	var loaded []string
	for _, path := range envFiles() {
		if loadEnvFile(path) {
			loaded = append(loaded, path)
		}
	}
	if path := filepath.Join(ConfigDir(), ".env"); loadEnvFile(path) {
		loaded = append(loaded, path)
	}
	return loaded
}

func loadEnvFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return godotenv.Load(path) == nil
}
