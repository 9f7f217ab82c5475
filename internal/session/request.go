package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Request is an immutable description of an API call.
//
// Path is relative to the API base URL and may carry a query string.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// NewRequest builds a [Request] without headers.
func NewRequest(method, path string, body []byte) Request {
	return Request{Method: method, Path: path, Body: body}
}

// JSONRequest marshals v as the request body and sets the JSON content type.
func JSONRequest(method, path string, v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("failed to encode request body: %w", err)
	}

	req := NewRequest(method, path, body)
	req.Header = http.Header{"Content-Type": []string{"application/json"}}
	return req, nil
}

// route returns the path without its query string.
func (r Request) route() string {
	route, _, _ := strings.Cut(r.Path, "?")
	return route
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Message extracts the "error" field of a JSON error body, falling back to the raw body.
func (e *StatusError) Message() string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(e.Body))
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// Transport issues a single request.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to [Transport].
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
