// Package antigravity reads per-model quota for Google Antigravity accounts
// through the signed call gateway.
package antigravity

import (
	"context"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// QuotaURLs are tried in order; the first one returning models wins.
var QuotaURLs = []string{
	"https://daily-cloudcode-pa.googleapis.com/v1internal:fetchAvailableModels",
	"https://daily-cloudcode-pa.sandbox.googleapis.com/v1internal:fetchAvailableModels",
	"https://cloudcode-pa.googleapis.com/v1internal:fetchAvailableModels",
}

const userAgent = "antigravity/1.11.5 windows/amd64"

func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, _ models.Credential) models.QuotaResult {
	log := logging.FromContext(ctx)
	var lastErr string

	for _, url := range QuotaURLs {
		res, err := caller.APICall(ctx, apicall.Request{
			AuthIndex: authIndex,
			Method:    "POST",
			URL:       url,
			Header: map[string]string{
				"Authorization": apicall.BearerToken,
				"Content-Type":  "application/json",
				"User-Agent":    userAgent,
			},
			Data: "{}",
		})
		if err != nil {
			lastErr = err.Error()
			continue
		}
		if res.OK() {
			if result := Parse(res.Body); len(result.Models) > 0 {
				return result
			}
		}
		log.Debug("antigravity endpoint returned no models", "url", url, "status", res.StatusCode)
		lastErr = apicall.FormatQuotaError(res)
	}

	if lastErr == "" {
		lastErr = "Failed to fetch quota"
	}
	return models.Failed(lastErr)
}
