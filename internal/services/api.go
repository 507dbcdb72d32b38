// Shared HTTP plumbing for the course service API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "coursex"
)

// RequestObserver receives one observation per completed request.
type RequestObserver interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// ClientOpts configures an [APIClient]. Zero values select defaults.
type ClientOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side rate limiting
	UserAgent         string
	Observer          RequestObserver
}

// APIClient performs JSON requests against the course service.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
	observer   RequestObserver
}

// NewAPIClient creates a client for the course service at opts.BaseURL.
func NewAPIClient(opts ClientOpts) *APIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := &APIClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		userAgent:  opts.UserAgent,
		observer:   opts.Observer,
	}
	if opts.RequestsPerSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return client
}

// BaseURL returns the service origin, without a trailing slash.
func (a *APIClient) BaseURL() string { return a.baseURL }

// Timeout returns the per-request deadline.
func (a *APIClient) Timeout() time.Duration { return a.timeout }

// request describes a single API call.
type request struct {
	method   string
	path     string
	endpoint string // metrics label, e.g. "auth.login"
	token    string
	body     any
}

// do executes req and decodes a 2xx JSON body into result when result is non-nil.
func (a *APIClient) do(ctx context.Context, req request, result any) (err error) {
	start := time.Now()
	defer func() {
		if a.observer != nil {
			a.observer.ObserveRequest(req.endpoint, outcome(err), time.Since(start))
		}
	}()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var payload io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.method, a.baseURL+req.path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", a.userAgent)
	httpReq.Header.Set("X-Request-ID", shared.GenerateID())
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		(&oauth2.Token{AccessToken: req.token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return a.transportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return a.transportError(ctx, reqCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, body)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &APIError{
			Kind:    shared.ErrService,
			Status:  resp.StatusCode,
			Message: "Failed to parse response JSON",
		}
	}
	return nil
}

// transportError classifies a failure that produced no usable response.
//
// A deadline on either context is a timeout. Cancellation by the caller is passed through unclassified.
func (a *APIClient) transportError(parent, reqCtx context.Context, err error) error {
	switch {
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded) && !errors.Is(parent.Err(), context.Canceled):
		return &APIError{Kind: shared.ErrTimeout, Message: "Request timeout"}
	case errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("request canceled: %w", parent.Err())
	default:
		return &APIError{Kind: shared.ErrService, Message: fmt.Sprintf("request failed: %v", err)}
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs an unclassified GET against path with an optional bearer token.
//
// Non-2xx responses are returned as-is so they can be inspected.
func (a *APIClient) Get(ctx context.Context, path, token string) (*APIResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("X-Request-ID", shared.GenerateID())
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.transportError(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
