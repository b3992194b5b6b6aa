package connect

import (
	"strings"

	"golang.org/x/mod/semver"

	"github.com/joshuadavidthomas/zerolimit/internal/management"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// Edition is the management server flavor. Only plus builds can link Copilot
// and Kiro accounts.
type Edition int

const (
	EditionUnknown Edition = iota
	EditionStandard
	EditionPlus
)

func (e Edition) String() string {
	switch e {
	case EditionStandard:
		return "standard"
	case EditionPlus:
		return "plus"
	case EditionUnknown:
		return "unknown"
	}
	return "unknown"
}

// EditionFromVersion classifies a version string. Plus builds either say so
// or carry a prerelease suffix (v6.6.0-1); anything that is not semver is
// unknown.
func EditionFromVersion(version string) Edition {
	v := strings.TrimSpace(strings.ToLower(version))
	if v == "" {
		return EditionUnknown
	}
	if strings.Contains(v, "plus") {
		return EditionPlus
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return EditionUnknown
	}
	if semver.Prerelease(v) != "" {
		return EditionPlus
	}
	return EditionStandard
}

// EditionFromExePath classifies the proxy executable path.
func EditionFromExePath(path string) Edition {
	switch {
	case path == "":
		return EditionUnknown
	case strings.Contains(strings.ToLower(path), "plus"):
		return EditionPlus
	}
	return EditionStandard
}

// Capability holds the locally configured signals about the server build.
type Capability struct {
	InstalledVersion string
	ExePath          string
}

// Edition resolves the server flavor. The first definite signal wins: the
// version the server reports, then the installed version, then the
// executable path.
func (c Capability) Edition(info management.ServerInfo) Edition {
	for _, e := range []Edition{
		EditionFromVersion(info.Version),
		EditionFromVersion(c.InstalledVersion),
		EditionFromExePath(c.ExePath),
	} {
		if e != EditionUnknown {
			return e
		}
	}
	return EditionUnknown
}

// Allows reports whether p may be linked. An unknown edition is allowed so
// the server gets the final say.
func (c Capability) Allows(p provider.Type, info management.ServerInfo) bool {
	if !p.PremiumOnly() {
		return true
	}
	return c.Edition(info) != EditionStandard
}
