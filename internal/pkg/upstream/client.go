// Package upstream talks to the backend REST API that owns every school
// resource. Calls carry the caller's session token as a bearer token.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxBodySize caps how much of an upstream response is buffered.
const maxBodySize = 10 << 20

type Client struct {
	baseURL string
	timeout time.Duration
	base    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		base:    &http.Client{},
	}
}

// APIError is a non-2xx answer from the backend API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream API error [%d]: %s", e.StatusCode, e.Message)
}

// Response is a buffered 2xx answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Request describes one forwarded call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
	Token  string
}

// Do sends the request and returns the buffered body. Non-2xx statuses are
// returned as *APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient(ctx, req.Token).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// DoJSON marshals in (when non-nil) and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	req := Request{Method: method, Path: path, Token: token}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode upstream request: %w", err)
		}
		req.Body = b
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

func (c *Client) httpClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.base
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// Envelope is the subset of the backend's JSON shape the gateway reshapes.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Meta       json.RawMessage `json:"meta"`
	Pagination json.RawMessage `json:"pagination"`
	Message    string          `json:"message"`
}

// Unwrap returns the "data" member and any pagination metadata. A body with
// no "data" member is returned whole.
func Unwrap(body []byte) (data json.RawMessage, meta json.RawMessage) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Data == nil {
		return json.RawMessage(trimmed), nil
	}

	meta = env.Meta
	if meta == nil {
		meta = env.Pagination
	}
	return env.Data, meta
}

func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	return http.StatusText(status)
}
