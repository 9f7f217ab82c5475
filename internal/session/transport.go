package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelx/internal/shared"
	"golang.org/x/time/rate"
)

// HTTPTransport issues requests against the API base URL.
//
// Cookies set by the API are kept by the client's jar and sent back on every request.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// HTTPTransportOpts configures an [HTTPTransport].
//
// A zero RateLimit disables rate limiting. Jar is ignored when Client is set.
type HTTPTransportOpts struct {
	BaseURL   string
	Client    *http.Client
	Jar       http.CookieJar
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Logger    *log.Logger
}

// NewHTTPTransport creates a new [HTTPTransport]
func NewHTTPTransport(opts HTTPTransportOpts) *HTTPTransport {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8088"
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Jar: opts.Jar, Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &HTTPTransport{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    limiter,
		logger:     shared.WithLogger(logger, "component", "http"),
	}
}

// BaseURL returns the API base URL without a trailing slash.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// Do performs req. Non-2xx responses are returned as [*StatusError].
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, t.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.Debug("api request", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
		}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}
