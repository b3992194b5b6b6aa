// Package usage summarizes the request statistics the management server
// collects when usage-statistics-enabled is on: totals per API key and
// model, token breakdowns and request trends.
package usage

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
)

// Tokens is the token count of one request.
type Tokens struct {
	Input     flexjson.Number `json:"input_tokens"`
	Output    flexjson.Number `json:"output_tokens"`
	Reasoning flexjson.Number `json:"reasoning_tokens"`
	Cached    flexjson.Number `json:"cached_tokens"`
	Total     flexjson.Number `json:"total_tokens"`
}

// Detail is one recorded request.
type Detail struct {
	Timestamp flexjson.String        `json:"timestamp"`
	Source    flexjson.String        `json:"source"`
	AuthIndex flexjson.String        `json:"auth_index"`
	Tokens    flexjson.Value[Tokens] `json:"tokens"`
	Failed    flexjson.Bool          `json:"failed"`
}

// ModelUsage aggregates one model under one API key.
type ModelUsage struct {
	TotalRequests flexjson.Number `json:"total_requests"`
	TotalTokens   flexjson.Number `json:"total_tokens"`
	Details       []Detail        `json:"details"`
}

// APIUsage aggregates one API key.
type APIUsage struct {
	TotalRequests flexjson.Number       `json:"total_requests"`
	TotalTokens   flexjson.Number       `json:"total_tokens"`
	Models        map[string]ModelUsage `json:"models"`
}

// Summary is the usage member of the response.
type Summary struct {
	TotalRequests flexjson.Number     `json:"total_requests"`
	SuccessCount  flexjson.Number     `json:"success_count"`
	FailureCount  flexjson.Number     `json:"failure_count"`
	TotalTokens   flexjson.Number     `json:"total_tokens"`
	APIs          map[string]APIUsage `json:"apis"`
}

// Response is the body of GET /usage.
type Response struct {
	FailedRequests flexjson.Number         `json:"failed_requests"`
	Usage          flexjson.Value[Summary] `json:"usage"`
}

// Grouping is the bucket size of request trends.
type Grouping string

const (
	ByDay  Grouping = "day"
	ByHour Grouping = "hour"
)

// ParseGrouping accepts "day" or "hour".
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(s); g {
	case ByDay, ByHour:
		return g, nil
	}
	return "", fmt.Errorf("unknown grouping %q (want day or hour)", s)
}

func (g Grouping) layout() string {
	if g == ByHour {
		return "2006-01-02 15:00"
	}
	return "2006-01-02"
}

// Totals are the server-wide counters plus the token breakdown summed over
// request details.
type Totals struct {
	Requests        int64 `json:"requests" yaml:"requests"`
	Succeeded       int64 `json:"succeeded" yaml:"succeeded"`
	Failed          int64 `json:"failed" yaml:"failed"`
	Tokens          int64 `json:"tokens" yaml:"tokens"`
	CachedTokens    int64 `json:"cached_tokens" yaml:"cached_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens" yaml:"reasoning_tokens"`
}

// ModelStat is one model under one API key. Failed counts failed details.
type ModelStat struct {
	Name     string `json:"name" yaml:"name"`
	API      string `json:"api" yaml:"api"`
	Requests int64  `json:"requests" yaml:"requests"`
	Tokens   int64  `json:"tokens" yaml:"tokens"`
	Failed   int64  `json:"failed" yaml:"failed"`
}

// APIStat is one API key with its models, busiest first.
type APIStat struct {
	Name     string      `json:"name" yaml:"name"`
	Requests int64       `json:"requests" yaml:"requests"`
	Tokens   int64       `json:"tokens" yaml:"tokens"`
	Models   []ModelStat `json:"models" yaml:"models"`
}

// Trend is the request and token count of one period.
type Trend struct {
	Period   string `json:"period" yaml:"period"`
	Requests int64  `json:"requests" yaml:"requests"`
	Tokens   int64  `json:"tokens" yaml:"tokens"`
}

// Stats is the processed view of a Response.
type Stats struct {
	Totals   Totals      `json:"totals" yaml:"totals"`
	Models   []ModelStat `json:"models" yaml:"models"`
	APIs     []APIStat   `json:"apis" yaml:"apis"`
	Grouping Grouping    `json:"grouping" yaml:"grouping"`
	Trends   []Trend     `json:"trends" yaml:"trends"`
	Sources  []string    `json:"sources" yaml:"sources"`
}

// Empty reports whether the server has recorded nothing.
func (s Stats) Empty() bool {
	return s.Totals.Requests == 0 && len(s.APIs) == 0
}

func count(n flexjson.Number) int64 {
	return int64(n.Or(0))
}

// Summarize aggregates resp. Trend periods are formatted in loc; details
// without a parseable timestamp count toward totals but not trends.
func Summarize(resp *Response, by Grouping, loc *time.Location) Stats {
	stats := Stats{
		Models:   []ModelStat{},
		APIs:     []APIStat{},
		Grouping: by,
		Trends:   []Trend{},
		Sources:  []string{},
	}
	if resp == nil {
		return stats
	}
	summary, ok := resp.Usage.Get()
	if !ok {
		return stats
	}

	stats.Totals = Totals{
		Requests:  count(summary.TotalRequests),
		Succeeded: count(summary.SuccessCount),
		Failed:    int64(summary.FailureCount.Or(resp.FailedRequests.Or(0))),
		Tokens:    count(summary.TotalTokens),
	}

	trends := make(map[string]*Trend)
	sources := make(map[string]bool)

	for apiName, api := range summary.APIs {
		apiStat := APIStat{
			Name:     apiName,
			Requests: count(api.TotalRequests),
			Tokens:   count(api.TotalTokens),
			Models:   []ModelStat{},
		}
		for modelName, m := range api.Models {
			ms := ModelStat{
				Name:     modelName,
				API:      apiName,
				Requests: count(m.TotalRequests),
				Tokens:   count(m.TotalTokens),
			}
			for _, d := range m.Details {
				tokens, _ := d.Tokens.Get()
				stats.Totals.CachedTokens += count(tokens.Cached)
				stats.Totals.ReasoningTokens += count(tokens.Reasoning)
				if d.Failed {
					ms.Failed++
				}
				if src := d.Source.Or(""); src != "" {
					sources[src] = true
				}

				at, err := time.Parse(time.RFC3339Nano, d.Timestamp.Or(""))
				if err != nil {
					continue
				}
				key := at.In(loc).Format(by.layout())
				tr, ok := trends[key]
				if !ok {
					tr = &Trend{Period: key}
					trends[key] = tr
				}
				tr.Requests++
				tr.Tokens += count(tokens.Total)
			}
			apiStat.Models = append(apiStat.Models, ms)
			stats.Models = append(stats.Models, ms)
		}
		sortModels(apiStat.Models)
		stats.APIs = append(stats.APIs, apiStat)
	}

	sortModels(stats.Models)
	slices.SortFunc(stats.APIs, func(a, b APIStat) int {
		return cmp.Or(cmp.Compare(b.Requests, a.Requests), cmp.Compare(a.Name, b.Name))
	})
	for _, tr := range trends {
		stats.Trends = append(stats.Trends, *tr)
	}
	slices.SortFunc(stats.Trends, func(a, b Trend) int { return cmp.Compare(a.Period, b.Period) })
	for src := range sources {
		stats.Sources = append(stats.Sources, src)
	}
	slices.Sort(stats.Sources)
	return stats
}

// sortModels orders busiest first, then by name and API for stable output.
func sortModels(ms []ModelStat) {
	slices.SortFunc(ms, func(a, b ModelStat) int {
		return cmp.Or(
			cmp.Compare(b.Requests, a.Requests),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.API, b.API),
		)
	})
}

// Mask hides API key names and request sources when m is enabled.
func (s Stats) Mask(m privacy.Masker) Stats {
	if !m.Enabled {
		return s
	}
	out := s
	out.Models = maskModels(s.Models, m)
	out.APIs = make([]APIStat, len(s.APIs))
	for i, a := range s.APIs {
		a.Name = m.APIName(a.Name)
		a.Models = maskModels(a.Models, m)
		out.APIs[i] = a
	}
	out.Sources = make([]string, len(s.Sources))
	for i, src := range s.Sources {
		out.Sources[i] = m.APIName(src)
	}
	return out
}

func maskModels(ms []ModelStat, m privacy.Masker) []ModelStat {
	out := make([]ModelStat, len(ms))
	for i, ms := range ms {
		ms.API = m.APIName(ms.API)
		out[i] = ms
	}
	return out
}

// FormatCount abbreviates large counts: 1.50M, 12.3K, 999.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 2, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	}
	return strconv.FormatInt(n, 10)
}
