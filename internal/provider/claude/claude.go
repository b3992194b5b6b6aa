// Package claude reads Claude subscription usage windows through the signed
// call gateway.
package claude

import (
	"context"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

const (
	UsageURL   = "https://api.anthropic.com/api/oauth/usage"
	betaHeader = "oauth-2025-04-20"
)

func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, _ models.Credential) models.QuotaResult {
	res, err := caller.APICall(ctx, apicall.Request{
		AuthIndex: authIndex,
		Method:    "GET",
		URL:       UsageURL,
		Header: map[string]string{
			"Authorization":  apicall.BearerToken,
			"anthropic-beta": betaHeader,
		},
	})
	if err != nil {
		return models.Failed(err.Error())
	}
	if res.OK() {
		return Parse(res.Body)
	}
	if res.StatusCode == 401 {
		logging.FromContext(ctx).Debug("claude token rejected", "auth_index", authIndex)
		return models.Failed("Token expired, please re-authenticate")
	}
	return models.Failed(apicall.FormatQuotaError(res))
}
