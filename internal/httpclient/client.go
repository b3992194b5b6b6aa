package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout matches the management server's own request timeout.
const DefaultTimeout = 30 * time.Second

// Client wraps net/http.Client with convenience methods for JSON APIs.
type Client struct {
	http *http.Client
}

// Response wraps the status code, headers, body bytes, and optional JSON
// decode error from a completed HTTP request. The underlying http.Response
// body is already closed; callers read from Body instead.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	JSONErr    error
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a Client with DefaultTimeout.
func New() *Client {
	return NewWithTimeout(DefaultTimeout)
}

// NewWithTimeout creates a Client with the given timeout.
func NewWithTimeout(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewFromConfig creates a Client using the config timeout (in seconds).
// Falls back to DefaultTimeout if the value is zero or negative.
func NewFromConfig(timeoutSeconds float64) *Client {
	if timeoutSeconds <= 0 {
		return New()
	}
	return NewWithTimeout(time.Duration(timeoutSeconds * float64(time.Second)))
}

// RequestOption configures an http.Request before it is sent.
type RequestOption func(*http.Request)

// DoCtx sends an HTTP request, applies options, reads the full body, and
// returns a Response. A non-nil error indicates a network-level failure or
// context cancellation; HTTP error status codes are returned in
// Response.StatusCode.
func (c *Client) DoCtx(ctx context.Context, method, rawURL string, body io.Reader, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// GetJSONCtx sends a GET request and decodes the response body as JSON into
// out. If out is nil, the body is still read and captured but not decoded.
// JSON decode errors are captured in Response.JSONErr rather than returned.
func (c *Client) GetJSONCtx(ctx context.Context, rawURL string, out any, opts ...RequestOption) (*Response, error) {
	resp, err := c.DoCtx(ctx, http.MethodGet, rawURL, nil, opts...)
	if err != nil {
		return nil, err
	}
	decodeInto(resp, out)
	return resp, nil
}

// DeleteJSONCtx sends a DELETE request and decodes the response like GetJSONCtx.
func (c *Client) DeleteJSONCtx(ctx context.Context, rawURL string, out any, opts ...RequestOption) (*Response, error) {
	resp, err := c.DoCtx(ctx, http.MethodDelete, rawURL, nil, opts...)
	if err != nil {
		return nil, err
	}
	decodeInto(resp, out)
	return resp, nil
}

// PostJSONCtx sends a POST request with a JSON-encoded body and decodes the
// response as JSON into out. If body is nil the request has no body.
// Content-Type is set to application/json automatically.
func (c *Client) PostJSONCtx(ctx context.Context, rawURL string, body any, out any, opts ...RequestOption) (*Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	allOpts := append([]RequestOption{WithHeader("Content-Type", "application/json")}, opts...)
	resp, err := c.DoCtx(ctx, http.MethodPost, rawURL, reader, allOpts...)
	if err != nil {
		return nil, err
	}
	decodeInto(resp, out)
	return resp, nil
}

// PostFormCtx sends a POST request with URL-encoded form data and decodes the
// response as JSON into out.
func (c *Client) PostFormCtx(ctx context.Context, rawURL string, form map[string]string, out any, opts ...RequestOption) (*Response, error) {
	vals := url.Values{}
	for k, v := range form {
		vals.Set(k, v)
	}
	allOpts := append([]RequestOption{WithHeader("Content-Type", "application/x-www-form-urlencoded")}, opts...)
	resp, err := c.DoCtx(ctx, http.MethodPost, rawURL, strings.NewReader(vals.Encode()), allOpts...)
	if err != nil {
		return nil, err
	}
	decodeInto(resp, out)
	return resp, nil
}

// PostFileCtx uploads content as a single multipart file field and decodes
// the response as JSON into out.
func (c *Client) PostFileCtx(ctx context.Context, rawURL, field, filename string, content []byte, out any, opts ...RequestOption) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	allOpts := append([]RequestOption{WithHeader("Content-Type", mw.FormDataContentType())}, opts...)
	resp, err := c.DoCtx(ctx, http.MethodPost, rawURL, &buf, allOpts...)
	if err != nil {
		return nil, err
	}
	decodeInto(resp, out)
	return resp, nil
}

func decodeInto(resp *Response, out any) {
	if out != nil {
		resp.JSONErr = json.Unmarshal(resp.Body, out)
	}
}
