package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// QuotaModel is one normalized usage window or model allowance. Percentage is
// the remaining share in [0, 100], not the consumed share.
type QuotaModel struct {
	Name         string  `json:"name" yaml:"name"`
	Percentage   float64 `json:"percentage" yaml:"percentage"`
	ResetTime    string  `json:"resetTime,omitempty" yaml:"reset_time,omitempty"`
	DisplayValue string  `json:"displayValue,omitempty" yaml:"display_value,omitempty"`
}

// QuotaResult is what every provider parser and fetcher produces. Error is a
// short user-facing message; it is set instead of returning a Go error.
type QuotaResult struct {
	Models []QuotaModel `json:"models"`
	Plan   string       `json:"plan,omitempty"`
	Email  string       `json:"email,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Failed returns a result carrying only an error message.
func Failed(msg string) QuotaResult {
	return QuotaResult{Models: []QuotaModel{}, Error: msg}
}

// Credential is one auth file as listed by the management API. The server
// attaches provider-specific keys freely, so every top-level key is kept in
// Fields and the well-known ones are lifted into typed fields.
type Credential struct {
	ID         string
	Filename   string
	Provider   string
	Metadata   map[string]any
	Attributes map[string]any
	Fields     map[string]any
}

func (c *Credential) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Credential{Fields: raw}
	c.ID = stringValue(raw["id"])
	c.Filename = stringValue(raw["filename"])
	if c.Filename == "" {
		c.Filename = stringValue(raw["name"])
	}
	c.Provider = stringValue(raw["provider"])
	if c.Provider == "" {
		c.Provider = stringValue(raw["type"])
	}
	c.Metadata, _ = raw["metadata"].(map[string]any)
	c.Attributes, _ = raw["attributes"].(map[string]any)
	return nil
}

func (c Credential) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+3)
	for k, v := range c.Fields {
		out[k] = v
	}
	if c.ID != "" {
		out["id"] = c.ID
	}
	if c.Filename != "" {
		out["filename"] = c.Filename
	}
	if c.Provider != "" {
		out["provider"] = c.Provider
	}
	return json.Marshal(out)
}

// Field returns a top-level key.
func (c Credential) Field(key string) any {
	if c.Fields == nil {
		return nil
	}
	return c.Fields[key]
}

// StringField returns the first of keys holding a non-empty string or finite
// number, trimmed.
func (c Credential) StringField(keys ...string) string {
	for _, k := range keys {
		if s := stringValue(c.Field(k)); s != "" {
			return s
		}
	}
	return ""
}

// Name is the identifier used for delete and display: the filename when
// present, otherwise the id.
func (c Credential) Name() string {
	if c.Filename != "" {
		return c.Filename
	}
	return c.ID
}

// Email returns the account email from the top level, metadata or attributes.
func (c Credential) Email() string {
	if s := c.StringField("email"); s != "" {
		return s
	}
	if s := stringValue(c.Metadata["email"]); s != "" {
		return s
	}
	return stringValue(c.Attributes["email"])
}

// StringValue normalizes a decoded JSON value to a trimmed string. Numbers
// are rendered in shortest form; anything else yields "".
func StringValue(v any) string {
	return stringValue(v)
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}
