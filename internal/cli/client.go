package cli

import (
	"github.com/joshuadavidthomas/zerolimit/internal/config"
	"github.com/joshuadavidthomas/zerolimit/internal/management"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
)

// newManagementClient builds the management API client from config.
// Tests replace it to point at an httptest server.
var newManagementClient = func(cfg config.Config) *management.Client {
	return management.NewClient(cfg.Server.APIBase, cfg.Server.ManagementKey, cfg.Server.Timeout)
}

// masker returns the masking policy: on when privacy is configured, unless
// --show-private is passed.
func masker(cfg config.Config) privacy.Masker {
	return privacy.Masker{Enabled: cfg.Display.Privacy && !showPrivate}
}
