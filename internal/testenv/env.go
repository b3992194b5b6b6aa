// Package testenv isolates zerolimit's config and data directories in tests.
package testenv

import "path/filepath"

// Dirs contains isolated directories for zerolimit config and data in tests.
type Dirs struct {
	Base   string
	Config string
	Data   string
}

// ZerolimitDirs returns conventional test directories rooted at base.
func ZerolimitDirs(base string) Dirs {
	return Dirs{
		Base:   base,
		Config: filepath.Join(base, "config"),
		Data:   filepath.Join(base, "data"),
	}
}

// Apply sets ZEROLIMIT_* dir vars to isolated test directories and clears
// the server overrides so a developer's environment cannot leak in.
func Apply(setenv func(string, string), base string) Dirs {
	dirs := ZerolimitDirs(base)
	setenv("ZEROLIMIT_CONFIG_DIR", dirs.Config)
	setenv("ZEROLIMIT_DATA_DIR", dirs.Data)
	clearOverrides(setenv)
	return dirs
}

// ApplySameDir points config and data to the same directory.
// Useful in tests that expect ConfigDir() to exactly match a temp dir path.
func ApplySameDir(setenv func(string, string), dir string) {
	setenv("ZEROLIMIT_CONFIG_DIR", dir)
	setenv("ZEROLIMIT_DATA_DIR", dir)
	clearOverrides(setenv)
}

func clearOverrides(setenv func(string, string)) {
	setenv("ZEROLIMIT_API_BASE", "")
	setenv("ZEROLIMIT_MANAGEMENT_KEY", "")
	setenv("ZEROLIMIT_NO_COLOR", "")
}
