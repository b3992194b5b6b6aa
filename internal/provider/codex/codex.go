// Package codex reads ChatGPT Codex rate-limit windows through the signed
// call gateway.
package codex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

const (
	UsageURL  = "https://chatgpt.com/backend-api/wham/usage"
	userAgent = "codex_cli_rs/0.76.0 (Debian 13.0.0; x86_64) WindowsTerminal"
)

// Fetch requests the usage windows for one credential. The plan falls back
// from the payload to the credential's own plan claims, then to "Plus".
func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, cred models.Credential) models.QuotaResult {
	header := map[string]string{
		"Authorization": apicall.BearerToken,
		"Content-Type":  "application/json",
		"User-Agent":    userAgent,
	}
	if id := AccountID(cred); id != "" {
		header["Chatgpt-Account-Id"] = id
	}

	res, err := caller.APICall(ctx, apicall.Request{
		AuthIndex: authIndex,
		Method:    "GET",
		URL:       UsageURL,
		Header:    header,
	})
	if err != nil {
		return models.Failed(err.Error())
	}
	if !res.OK() {
		logging.FromContext(ctx).Debug("codex usage request failed", "status", res.StatusCode)
		return models.Failed(apicall.FormatQuotaError(res))
	}

	plan := PlanType(cred)
	if plan == "" {
		plan = defaultPlan
	}
	return parse(res.Body, time.Now(), plan)
}

// AccountID extracts chatgpt_account_id from the credential's id_token, which
// may be stored at the top level, under metadata or under attributes.
func AccountID(cred models.Credential) string {
	for _, candidate := range []any{cred.Field("id_token"), cred.Metadata["id_token"], cred.Attributes["id_token"]} {
		claims := idTokenClaims(candidate)
		if claims == nil {
			continue
		}
		for _, key := range []string{"chatgpt_account_id", "chatgptAccountId"} {
			if id := models.StringValue(claims[key]); id != "" {
				return id
			}
		}
	}
	return ""
}

// PlanType resolves the plan recorded on the credential, lowercased, or ""
// when none is recorded.
func PlanType(cred models.Credential) string {
	sources := []map[string]any{cred.Fields, cred.Metadata, cred.Attributes}
	for _, src := range sources {
		if src == nil {
			continue
		}
		if plan := planFrom(src); plan != "" {
			return plan
		}
		if claims := idTokenClaims(src["id_token"]); claims != nil {
			if plan := planFrom(claims); plan != "" {
				return plan
			}
		}
	}
	return ""
}

func planFrom(m map[string]any) string {
	for _, key := range []string{"plan_type", "planType"} {
		if plan := models.StringValue(m[key]); plan != "" {
			return strings.ToLower(plan)
		}
	}
	return ""
}

// idTokenClaims accepts an id_token stored as a decoded object, as a JSON
// string, or as a compact JWT whose payload segment holds the claims.
func idTokenClaims(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		var claims map[string]any
		if json.Unmarshal([]byte(s), &claims) == nil && claims != nil {
			return claims
		}
		segments := strings.Split(s, ".")
		if len(segments) < 2 {
			return nil
		}
		payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(segments[1], "="))
		if err != nil {
			return nil
		}
		if json.Unmarshal(payload, &claims) == nil && claims != nil {
			return claims
		}
	}
	return nil
}
