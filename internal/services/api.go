// API service for making raw HTTP requests to the MagicStream API
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/reelx/internal/session"
	"github.com/desertthunder/reelx/internal/shared"
)

// APIService provides methods for making raw HTTP requests through the session guard.
type APIService struct {
	transport session.Transport
}

// NewAPIService creates a new API service instance over transport (normally the session guard).
func NewAPIService(transport session.Transport) *APIService {
	return &APIService{transport: transport}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Health is the body of GET /health.
type Health struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, session.NewRequest(http.MethodGet, path, nil))
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	if len(data) > 0 {
		if err := shared.ValidateJSON(data); err != nil {
			return nil, err
		}
	}

	req := session.NewRequest(http.MethodPost, path, data)
	req.Header = http.Header{"Content-Type": []string{"application/json"}}
	return a.do(ctx, req)
}

// Health checks whether the API is up.
func (a *APIService) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := getJSON(ctx, a.transport, "/health", &health); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return &health, nil
}

// do returns plain status errors as responses so callers can inspect any status.
// Session errors are returned as errors.
func (a *APIService) do(ctx context.Context, req session.Request) (*APIResponse, error) {
	resp, err := a.transport.Do(ctx, req)

	var se *session.StatusError
	switch {
	case err == nil:
		return newAPIResponse(resp.StatusCode, resp.Header, resp.Body), nil
	case errors.Is(err, shared.ErrRefreshUnrecoverable), errors.Is(err, shared.ErrRefreshFailed), errors.Is(err, shared.ErrUnauthorizedAfterRetry):
		return nil, err
	case errors.As(err, &se):
		return newAPIResponse(se.StatusCode, se.Header, se.Body), nil
	default:
		return nil, err
	}
}

func newAPIResponse(status int, header http.Header, body []byte) *APIResponse {
	apiResp := &APIResponse{
		StatusCode: status,
		Headers:    header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}
	return apiResp
}
