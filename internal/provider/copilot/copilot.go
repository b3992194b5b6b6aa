// Package copilot reads GitHub Copilot entitlement quotas through the signed
// call gateway.
package copilot

import (
	"context"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

const (
	EntitlementURL = "https://api.github.com/copilot_internal/user"
	apiVersion     = "2022-11-28"
)

func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, _ models.Credential) models.QuotaResult {
	res, err := caller.APICall(ctx, apicall.Request{
		AuthIndex: authIndex,
		Method:    "GET",
		URL:       EntitlementURL,
		Header: map[string]string{
			"Authorization":        apicall.BearerToken,
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": apiVersion,
		},
	})
	if err != nil {
		return models.Failed(err.Error())
	}
	switch {
	case res.OK():
		return Parse(res.Body)
	case res.StatusCode == 401 || res.StatusCode == 403:
		logging.FromContext(ctx).Debug("copilot entitlement rejected", "status", res.StatusCode)
		return models.Failed("Token invalid or no Copilot subscription")
	}
	return models.Failed(apicall.FormatQuotaError(res))
}
