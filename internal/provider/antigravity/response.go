package antigravity

import (
	"sort"
	"strings"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/models"
)

// FetchAvailableModelsResponse is the fetchAvailableModels payload. Models is
// keyed by model id; the *ModelIds lists name models the account can select
// that may have no quota entry of their own.
type FetchAvailableModelsResponse struct {
	Models                  flexjson.Value[map[string]flexjson.Value[Model]] `json:"models"`
	AgentModelSorts         flexjson.Value[[]flexjson.Value[ModelSort]]      `json:"agentModelSorts"`
	CommandModelIDs         idList                                           `json:"commandModelIds"`
	TabModelIDs             idList                                           `json:"tabModelIds"`
	ImageGenerationModelIDs idList                                           `json:"imageGenerationModelIds"`
	MqueryModelIDs          idList                                           `json:"mqueryModelIds"`
	WebSearchModelIDs       idList                                           `json:"webSearchModelIds"`
	DefaultAgentModelID     flexjson.Value[string]                           `json:"defaultAgentModelId"`
}

type idList = flexjson.Value[[]flexjson.Value[string]]

// ModelSort groups selectable agent models.
type ModelSort struct {
	Groups flexjson.Value[[]flexjson.Value[ModelGroup]] `json:"groups"`
}

type ModelGroup struct {
	ModelIDs idList `json:"modelIds"`
}

// Model is one entry of the models map. Quota fields may sit on the model
// itself or under quotaInfo.
type Model struct {
	Quota
	IsInternal       flexjson.Bool         `json:"isInternal"`
	DisplayName      flexjson.String       `json:"displayName"`
	DisplayNameSnake flexjson.String       `json:"display_name"`
	QuotaInfo        flexjson.Value[Quota] `json:"quotaInfo"`
	QuotaInfoSnake   flexjson.Value[Quota] `json:"quota_info"`
}

type Quota struct {
	RemainingFraction      flexjson.Number        `json:"remainingFraction"`
	RemainingFractionSnake flexjson.Number        `json:"remaining_fraction"`
	Remaining              flexjson.Number        `json:"remaining"`
	ResetTime              flexjson.Value[string] `json:"resetTime"`
	ResetTimeSnake         flexjson.Value[string] `json:"reset_time"`
}

func (q Quota) resetTime() (string, bool) {
	return flexjson.First(q.ResetTime, q.ResetTimeSnake).Get()
}

var knownNames = map[string]string{
	"rev19-uic3-1p":         "Gemini 2.5 Computer Use",
	"gemini-3-pro-image":    "Gemini 3 Pro Image",
	"gemini-2.5-flash-lite": "Gemini 2.5 Flash Lite",
	"gemini-2.5-flash":      "Gemini 2.5 Flash",
}

func displayName(id string) string {
	if name, ok := knownNames[id]; ok {
		return name
	}
	return id
}

// excluded reports ids that are chat surfaces or internal previews rather than
// user-selectable models.
func excluded(id string) bool {
	return strings.HasPrefix(id, "chat_") || id == "tab_flash_lite_preview" || id == "tab_jump_flash_lite_preview"
}

// Parse normalizes a fetchAvailableModels payload into models sorted by name.
func Parse(body []byte) models.QuotaResult {
	return models.QuotaResult{Models: parseModels(body, time.Now())}
}

func parseModels(body []byte, now time.Time) []models.QuotaModel {
	out := []models.QuotaModel{}
	var resp FetchAvailableModelsResponse
	if !flexjson.DecodeObject(flexjson.Unquote(body), &resp) {
		return out
	}
	entries, ok := resp.Models.Get()
	if !ok {
		return out
	}

	type keyed struct {
		key   string
		model models.QuotaModel
	}
	var list []keyed

	for key, value := range entries {
		m, ok := value.Get()
		if !ok || bool(m.IsInternal) || excluded(key) {
			continue
		}
		name := flexjson.FirstString(m.DisplayName, m.DisplayNameSnake).Or(displayName(key))

		quotaInfo, hasInfo := flexjson.First(m.QuotaInfo, m.QuotaInfoSnake).Get()
		source := m.Quota
		if hasInfo {
			source = quotaInfo
		}

		remaining := flexjson.FirstNumber(source.RemainingFraction, source.RemainingFractionSnake, source.Remaining)
		fraction := remaining.Value
		if !remaining.Valid {
			fraction = 1
			if reset, ok := quotaInfo.resetTime(); hasInfo && ok && reset != "" {
				fraction = 0
			}
		}

		qm := models.QuotaModel{Name: name, Percentage: models.RoundPct(fraction * 100)}
		if reset, ok := source.resetTime(); ok {
			qm.ResetTime = models.FormatTimeUntil(reset, now)
		}
		list = append(list, keyed{key: key, model: qm})
	}

	seen := make(map[string]bool, len(entries))
	for key := range entries {
		seen[key] = true
	}
	for _, id := range resp.extraIDs() {
		if seen[id] || excluded(id) {
			continue
		}
		seen[id] = true
		list = append(list, keyed{key: id, model: models.QuotaModel{Name: displayName(id), Percentage: 100}})
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].model.Name != list[j].model.Name {
			return list[i].model.Name < list[j].model.Name
		}
		return list[i].key < list[j].key
	})
	for _, k := range list {
		out = append(out, k.model)
	}
	return out
}

// extraIDs collects every model id referenced outside the models map.
func (r FetchAvailableModelsResponse) extraIDs() []string {
	var ids []string
	add := func(l idList) {
		vals, _ := l.Get()
		for _, v := range vals {
			if id, ok := v.Get(); ok && id != "" {
				ids = append(ids, id)
			}
		}
	}

	sorts, _ := r.AgentModelSorts.Get()
	for _, s := range sorts {
		ms, ok := s.Get()
		if !ok {
			continue
		}
		groups, _ := ms.Groups.Get()
		for _, g := range groups {
			if group, ok := g.Get(); ok {
				add(group.ModelIDs)
			}
		}
	}
	add(r.CommandModelIDs)
	add(r.TabModelIDs)
	add(r.ImageGenerationModelIDs)
	add(r.MqueryModelIDs)
	add(r.WebSearchModelIDs)
	if id, ok := r.DefaultAgentModelID.Get(); ok && id != "" {
		ids = append(ids, id)
	}
	return ids
}
