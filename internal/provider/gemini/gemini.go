// Package gemini reads Gemini CLI (Code Assist) quota buckets through the
// signed call gateway.
package gemini

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

const QuotaURL = "https://cloudcode-pa.googleapis.com/v1internal:retrieveUserQuota"

// Fetch requests quota buckets for the Google Cloud project recorded in the
// credential's account field.
func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, cred models.Credential) models.QuotaResult {
	projectID := ProjectID(cred)
	if projectID == "" {
		return models.Failed("Project ID not found in file")
	}
	data, _ := json.Marshal(map[string]string{"project": projectID})

	res, err := caller.APICall(ctx, apicall.Request{
		AuthIndex: authIndex,
		Method:    "POST",
		URL:       QuotaURL,
		Header: map[string]string{
			"Authorization": apicall.BearerToken,
			"Content-Type":  "application/json",
		},
		Data: string(data),
	})
	if err != nil {
		return models.Failed(err.Error())
	}
	if !res.OK() {
		logging.FromContext(ctx).Debug("gemini quota request failed", "project", projectID, "status", res.StatusCode)
		return models.Failed(apicall.FormatQuotaError(res))
	}
	return Parse(res.Body)
}

var parenthesized = regexp.MustCompile(`\(([^()]+)\)`)

// ProjectID returns the last parenthesized group of the credential's account
// string, e.g. "user@example.com (my-project)" yields "my-project".
func ProjectID(cred models.Credential) string {
	for _, candidate := range []any{cred.Field("account"), cred.Metadata["account"], cred.Attributes["account"]} {
		account, ok := candidate.(string)
		if !ok {
			continue
		}
		matches := parenthesized.FindAllStringSubmatch(account, -1)
		if len(matches) == 0 {
			continue
		}
		if id := strings.TrimSpace(matches[len(matches)-1][1]); id != "" {
			return id
		}
	}
	return ""
}
