package copilot

import (
	"strings"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// UserResponse is the copilot_internal/user payload.
type UserResponse struct {
	AccessTypeSKU        flexjson.String                `json:"access_type_sku"`
	CopilotPlan          flexjson.String                `json:"copilot_plan"`
	QuotaResetDateUTC    flexjson.String                `json:"quota_reset_date_utc"`
	QuotaResetDate       flexjson.String                `json:"quota_reset_date"`
	LimitedUserResetDate flexjson.String                `json:"limited_user_reset_date"`
	QuotaSnapshots       flexjson.Value[QuotaSnapshots] `json:"quota_snapshots"`
	LimitedUserQuotas    flexjson.Value[LegacyQuotas]   `json:"limited_user_quotas"`
	MonthlyQuotas        flexjson.Value[LegacyQuotas]   `json:"monthly_quotas"`
}

// QuotaSnapshots holds the current per-interaction quotas.
type QuotaSnapshots struct {
	Chat                flexjson.Value[Quota] `json:"chat"`
	Completions         flexjson.Value[Quota] `json:"completions"`
	PremiumInteractions flexjson.Value[Quota] `json:"premium_interactions"`
}

// Quota is one snapshot. PercentRemaining is only trusted when it is a JSON
// number.
type Quota struct {
	Entitlement      flexjson.Number         `json:"entitlement"`
	Remaining        flexjson.Number         `json:"remaining"`
	PercentRemaining flexjson.Value[float64] `json:"percent_remaining"`
	Unlimited        flexjson.Bool           `json:"unlimited"`
}

// RemainingPercent returns the rounded remaining share. defaultTotal stands in
// for a missing entitlement.
func (q Quota) RemainingPercent(defaultTotal float64) float64 {
	if pct, ok := q.PercentRemaining.Get(); ok {
		return models.RoundPct(pct)
	}
	total := q.Entitlement.Or(defaultTotal)
	if total <= 0 {
		return 100
	}
	return models.RoundPct(q.Remaining.Or(0) / total * 100)
}

// LegacyQuotas is the free-tier shape: remaining counts under
// limited_user_quotas, totals under monthly_quotas.
type LegacyQuotas struct {
	Chat        flexjson.Number `json:"chat"`
	Completions flexjson.Number `json:"completions"`
}

// Plan maps the sku and plan fields to a display plan.
func (r UserResponse) Plan() string {
	sku := strings.ToLower(r.AccessTypeSKU.Or(""))
	raw := r.CopilotPlan.Or("")
	plan := strings.ToLower(raw)

	switch {
	case strings.Contains(sku, "enterprise") || plan == "enterprise":
		return "Enterprise"
	case strings.Contains(sku, "business") || plan == "business":
		return "Business"
	case strings.Contains(sku, "educational") || strings.Contains(sku, "pro") || strings.Contains(plan, "pro"):
		return "Pro"
	case plan == "individual" && !strings.Contains(sku, "free_limited"):
		return "Pro"
	case strings.Contains(sku, "free_limited") || sku == "free" || strings.Contains(plan, "free"):
		return "Free"
	case raw != "":
		return strings.ToUpper(raw[:1]) + raw[1:]
	}
	return "Unknown"
}

// Parse normalizes an entitlement payload. Any object payload yields at least
// one model.
func Parse(body []byte) models.QuotaResult {
	return parse(body, time.Now())
}

func parse(body []byte, now time.Time) models.QuotaResult {
	var resp UserResponse
	if !flexjson.DecodeObject(body, &resp) {
		return models.QuotaResult{Models: []models.QuotaModel{}}
	}

	var reset string
	if raw := flexjson.FirstString(resp.QuotaResetDateUTC, resp.QuotaResetDate, resp.LimitedUserResetDate).Or(""); raw != "" {
		reset = models.FormatTimeUntil(raw, now)
	}

	result := models.QuotaResult{Plan: resp.Plan(), Models: []models.QuotaModel{}}
	add := func(name string, pct float64) {
		result.Models = append(result.Models, models.QuotaModel{Name: name, Percentage: pct, ResetTime: reset})
	}

	if snaps, ok := resp.QuotaSnapshots.Get(); ok {
		for _, s := range []struct {
			name         string
			quota        flexjson.Value[Quota]
			defaultTotal float64
		}{
			{"Chat", snaps.Chat, 50},
			{"Completions", snaps.Completions, 2000},
			{"Premium", snaps.PremiumInteractions, 50},
		} {
			q, ok := s.quota.Get()
			if !ok || bool(q.Unlimited) {
				continue
			}
			add(s.name, q.RemainingPercent(s.defaultTotal))
		}
	}

	if len(result.Models) == 0 {
		limited, okLimited := resp.LimitedUserQuotas.Get()
		monthly, okMonthly := resp.MonthlyQuotas.Get()
		if okLimited && okMonthly {
			if total := monthly.Chat.Or(0); total > 0 {
				add("Chat", models.RoundPct(limited.Chat.Or(0)/total*100))
			}
			if total := monthly.Completions.Or(0); total > 0 {
				add("Completions", models.RoundPct(limited.Completions.Or(0)/total*100))
			}
		}
	}

	if len(result.Models) == 0 {
		result.Models = append(result.Models, models.QuotaModel{Name: "Copilot", Percentage: 100})
	}
	return result
}
