// Package kiro reads AWS Kiro (CodeWhisperer) agentic request limits through
// the signed call gateway.
package kiro

import (
	"context"
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/apicall"
	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

const (
	UsageURL       = "https://codewhisperer.us-east-1.amazonaws.com/getUsageLimits?isEmailRequired=true&origin=AI_EDITOR&resourceType=AGENTIC_REQUEST"
	userAgent      = "aws-sdk-js/3.0.0 KiroIDE-0.1.0 os/windows lang/js md/nodejs/18.0.0"
	amzUserAgent   = "aws-sdk-js/3.0.0"
	suspendedPlan  = "Suspended"
	suspendedModel = "Kiro"
)

func Fetch(ctx context.Context, caller apicall.Caller, authIndex string, _ models.Credential) models.QuotaResult {
	res, err := caller.APICall(ctx, apicall.Request{
		AuthIndex: authIndex,
		Method:    "GET",
		URL:       UsageURL,
		Header: map[string]string{
			"Authorization":    apicall.BearerToken,
			"Content-Type":     "application/json",
			"User-Agent":       userAgent,
			"x-amz-user-agent": amzUserAgent,
		},
	})
	if err != nil {
		return models.Failed(err.Error())
	}
	if res.OK() {
		return Parse(res.Body)
	}
	if res.StatusCode == 403 {
		// Suspended accounts carry the reason in place of a reset time.
		reason := suspensionReason(res.Body)
		logging.FromContext(ctx).Info("kiro account suspended", "reason", reason)
		return models.QuotaResult{
			Models: []models.QuotaModel{{Name: suspendedModel, Percentage: 100, ResetTime: reason}},
			Plan:   suspendedPlan,
		}
	}
	return models.Failed(apicall.FormatQuotaError(res))
}

// suspensionReason turns e.g. TEMPORARILY_SUSPENDED into "Temporarily suspended".
func suspensionReason(body []byte) string {
	var payload struct {
		Reason flexjson.String `json:"reason"`
	}
	flexjson.DecodeObject(body, &payload)
	raw := strings.ToLower(strings.ReplaceAll(payload.Reason.Or(""), "_", " "))
	if raw == "" {
		return "Suspended"
	}
	return strings.ToUpper(raw[:1]) + raw[1:]
}
