// API service for making raw HTTP requests to the animation backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/animx/internal/shared"
	"golang.org/x/time/rate"
)

// APIService provides methods for making raw HTTP requests to the
// animation backend, throttled by a shared [rate.Limiter].
//
// Used by the `api` command group for debugging and scripting against
// endpoints the typed client does not cover.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	apiKey     string
}

// NewAPIService creates a new raw API client. A non-positive
// requestsPerSecond disables throttling.
func NewAPIService(baseURL string, client *http.Client, requestsPerSecond float64) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    limiter,
	}
}

// SetToken sets the session bearer token attached to every request.
func (a *APIService) SetToken(token string) {
	a.token = token
}

// SetAPIKey sets the fallback Gemini key attached to every request.
func (a *APIService) SetAPIKey(key string) {
	a.apiKey = key
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// do executes the request after waiting for the rate limiter and wraps
// the response.
func (a *APIService) do(ctx context.Context, req *http.Request) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if a.apiKey != "" {
		req.Header.Set(shared.APIKeyHeader, a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
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

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	fullURL := a.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return a.do(ctx, req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return a.do(ctx, req)
}
