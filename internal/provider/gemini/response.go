package gemini

import (
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// QuotaResponse is the retrieveUserQuota payload.
type QuotaResponse struct {
	Buckets flexjson.Value[[]flexjson.Value[QuotaBucket]] `json:"buckets"`
}

// QuotaBucket is the remaining share of one model's daily allowance.
type QuotaBucket struct {
	ModelID                flexjson.String        `json:"modelId"`
	ModelIDSnake           flexjson.String        `json:"model_id"`
	RemainingFraction      flexjson.Number        `json:"remainingFraction"`
	RemainingFractionSnake flexjson.Number        `json:"remaining_fraction"`
	ResetTime              flexjson.Value[string] `json:"resetTime"`
	ResetTimeSnake         flexjson.Value[string] `json:"reset_time"`
}

// Parse maps each bucket to a model named by its model id.
func Parse(body []byte) models.QuotaResult {
	return parse(body, time.Now())
}

func parse(body []byte, now time.Time) models.QuotaResult {
	result := models.QuotaResult{Models: []models.QuotaModel{}}
	var resp QuotaResponse
	if !flexjson.DecodeObject(flexjson.Unquote(body), &resp) {
		return result
	}
	buckets, _ := resp.Buckets.Get()
	for _, b := range buckets {
		bucket, ok := b.Get()
		if !ok {
			continue
		}
		fraction := flexjson.FirstNumber(bucket.RemainingFraction, bucket.RemainingFractionSnake).Or(0)
		m := models.QuotaModel{
			Name:       flexjson.FirstString(bucket.ModelID, bucket.ModelIDSnake).Or("Unknown"),
			Percentage: models.RoundPct(fraction * 100),
		}
		if reset, ok := flexjson.First(bucket.ResetTime, bucket.ResetTimeSnake).Get(); ok {
			m.ResetTime = models.FormatTimeUntil(reset, now)
		}
		result.Models = append(result.Models, m)
	}
	return result
}
