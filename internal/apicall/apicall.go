// Package apicall describes the management server's signed call gateway: an
// HTTP request executed on behalf of a stored credential, with the $TOKEN$
// placeholder in header values replaced by the credential's live token.
package apicall

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/flexjson"
)

// TokenPlaceholder is substituted by the gateway with the live access token.
const TokenPlaceholder = "$TOKEN$"

// BearerToken is the Authorization header template for provider calls.
const BearerToken = "Bearer " + TokenPlaceholder

// Request is the body of POST /api-call.
type Request struct {
	AuthIndex string            `json:"authIndex,omitempty"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Header    map[string]string `json:"header,omitempty"`
	Data      string            `json:"data,omitempty"`
}

// Result is the normalized gateway response. Body holds JSON: the upstream
// body when it parsed as JSON, the body text encoded as a JSON string when it
// did not, or nil when the upstream body was empty.
type Result struct {
	StatusCode int
	Header     map[string][]string
	BodyText   string
	Body       json.RawMessage
}

// OK reports a 2xx upstream status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Caller executes gateway requests.
type Caller interface {
	APICall(ctx context.Context, req Request) (*Result, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, req Request) (*Result, error)

func (f CallerFunc) APICall(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

type rawResponse struct {
	StatusCodeSnake flexjson.Number `json:"status_code"`
	StatusCodeCamel flexjson.Number `json:"statusCode"`
	Header          map[string]any  `json:"header"`
	Headers         map[string]any  `json:"headers"`
	Body            json.RawMessage `json:"body"`
}

// DecodeResult parses the gateway's raw response envelope.
func DecodeResult(data []byte) (*Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	status := flexjson.FirstNumber(raw.StatusCodeSnake, raw.StatusCodeCamel)
	header := raw.Header
	if header == nil {
		header = raw.Headers
	}
	text, body := NormalizeBody(raw.Body)
	return &Result{
		StatusCode: int(status.Or(0)),
		Header:     normalizeHeader(header),
		BodyText:   text,
		Body:       body,
	}, nil
}

// NormalizeBody turns the envelope's body field into text plus JSON. A string
// body is parsed as JSON when possible.
func NormalizeBody(raw json.RawMessage) (string, json.RawMessage) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] != '"' {
		return string(trimmed), json.RawMessage(trimmed)
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return string(trimmed), nil
	}
	inner := strings.TrimSpace(text)
	if inner == "" {
		return text, nil
	}
	if json.Valid([]byte(inner)) {
		return text, json.RawMessage(inner)
	}
	return text, json.RawMessage(trimmed)
}

func normalizeHeader(in map[string]any) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = []string{t}
		case []any:
			for _, e := range t {
				if s, ok := e.(string); ok {
					out[k] = append(out[k], s)
				}
			}
		}
	}
	return out
}

type errorBody struct {
	Error   flexjson.Value[json.RawMessage] `json:"error"`
	Message flexjson.String                 `json:"message"`
}

// ErrorMessage extracts a "status message" summary from a failed call.
func ErrorMessage(r *Result) string {
	message := bodyMessage(r.Body)
	if message == "" {
		message = r.BodyText
	}
	status := r.StatusCode
	switch {
	case status != 0 && message != "":
		return strings.TrimSpace(strconv.Itoa(status) + " " + message)
	case status != 0:
		return "HTTP " + strconv.Itoa(status)
	case message != "":
		return message
	}
	return "Request failed"
}

func bodyMessage(body json.RawMessage) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		_ = json.Unmarshal(trimmed, &s)
		return s
	case '{':
		var eb errorBody
		if !flexjson.DecodeObject(trimmed, &eb) {
			return ""
		}
		if raw, ok := eb.Error.Get(); ok {
			var nested struct {
				Message flexjson.String `json:"message"`
			}
			if flexjson.DecodeObject(raw, &nested) {
				if m := nested.Message.Or(""); m != "" {
					return m
				}
			} else {
				var s string
				if json.Unmarshal(raw, &s) == nil && s != "" {
					return s
				}
			}
		}
		return eb.Message.Or("")
	}
	return ""
}

// FormatQuotaError maps a failed quota call to a short message that never
// carries a full upstream body.
func FormatQuotaError(r *Result) string {
	status := r.StatusCode
	raw := ErrorMessage(r)

	if status == 401 || status == 403 {
		if strings.Contains(raw, "token") || strings.Contains(raw, "auth") || strings.Contains(raw, "credential") {
			return "Token invalid or expired (" + strconv.Itoa(status) + ")"
		}
		return "Access denied (" + strconv.Itoa(status) + ")"
	}
	if status == 429 {
		return "Rate limit exceeded"
	}
	return Truncate(raw, 100)
}

// Truncate shortens s to max runes, ending in "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
