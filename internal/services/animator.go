// Animation backend implementation of [Service]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/shared"
)

// AnimationService implements the Service interface against the animation
// generation backend.
//
// The zero credential state is usable for public endpoints (gallery,
// health); authenticated endpoints require a session token set via
// [AnimationService.SetToken].
type AnimationService struct {
	baseURL    string
	httpClient *http.Client
	token      string
	apiKey     string
}

var _ Service = (*AnimationService)(nil)

// NewAnimationService creates a client for the backend at baseURL.
func NewAnimationService(baseURL string, client *http.Client) *AnimationService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &AnimationService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (s *AnimationService) Name() string {
	return "Animation API"
}

// SetToken sets the session bearer token attached to every request.
func (s *AnimationService) SetToken(token string) {
	s.token = token
}

// SetAPIKey sets the user-supplied fallback Gemini key. When non-empty it
// is sent as the x-gemini-api-key header on every request.
func (s *AnimationService) SetAPIKey(key string) {
	s.apiKey = key
}

// doRequest performs an HTTP request against the backend, attaching
// credentials and decoding the JSON response into result when non-nil.
//
// Non-2xx responses return a [*StatusError] with the backend's detail
// message when the body carries one.
func (s *AnimationService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	apiURL := s.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if s.apiKey != "" {
		req.Header.Set(shared.APIKeyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// statusError builds a [*StatusError] from a non-2xx response, reading
// the {"detail": ...} error body the backend emits.
func statusError(resp *http.Response) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode}

	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Detail != "" {
			e.Detail = body.Detail
		} else {
			e.Detail = body.Message
		}
	}

	return e
}

// Generate submits a prompt for animation generation and returns the
// queued job acknowledgement.
func (s *AnimationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := s.doRequest(ctx, http.MethodPost, "/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobStatus retrieves the current state of a job.
func (s *AnimationService) JobStatus(ctx context.Context, jobID string) (*StatusResponse, error) {
	var resp StatusResponse
	endpoint := fmt.Sprintf("/status/%s", url.PathEscape(jobID))
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return &resp, nil
}

// VideoURL returns the streaming URL for a job's rendered video, derived
// from the configured base URL.
func (s *AnimationService) VideoURL(jobID string) string {
	return fmt.Sprintf("%s/video/stream/%s", s.baseURL, url.PathEscape(jobID))
}

// StreamVideo copies the rendered video for a job into w, returning the
// number of bytes written.
func (s *AnimationService) StreamVideo(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.VideoURL(jobID), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, statusError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write video: %w", err)
	}

	return n, nil
}

// ListConversations retrieves the user's conversations, newest first.
func (s *AnimationService) ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/conversations/?limit=%d&offset=%d", limit, offset)

	var conversations []models.Conversation
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &conversations); err != nil {
		return nil, err
	}

	return conversations, nil
}

// CreateConversation creates a conversation with the given title.
func (s *AnimationService) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	body := map[string]string{"title": title}

	var conv models.Conversation
	if err := s.doRequest(ctx, http.MethodPost, "/conversations/", body, &conv); err != nil {
		return nil, err
	}

	return &conv, nil
}

// GetConversation retrieves a conversation with its jobs.
func (s *AnimationService) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	endpoint := fmt.Sprintf("/conversations/%s", url.PathEscape(conversationID))

	var conv models.Conversation
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &conv); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrConversationNotFound, conversationID)
		}
		return nil, err
	}

	return &conv, nil
}

// RenameConversation updates a conversation's title.
func (s *AnimationService) RenameConversation(ctx context.Context, conversationID, title string) (*models.Conversation, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/conversations/%s", url.PathEscape(conversationID))
	body := map[string]string{"title": title}

	var conv models.Conversation
	if err := s.doRequest(ctx, http.MethodPatch, endpoint, body, &conv); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrConversationNotFound, conversationID)
		}
		return nil, err
	}

	return &conv, nil
}

// DeleteConversation deletes a conversation.
func (s *AnimationService) DeleteConversation(ctx context.Context, conversationID string) error {
	endpoint := fmt.Sprintf("/conversations/%s", url.PathEscape(conversationID))

	if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", shared.ErrConversationNotFound, conversationID)
		}
		return err
	}

	return nil
}

// ListJobs retrieves the user's jobs with pagination and optional search.
func (s *AnimationService) ListJobs(ctx context.Context, limit, offset int, search string) (*models.JobPage, error) {
	return s.jobPage(ctx, "/jobs/", limit, offset, search)
}

// PublicJobs retrieves the public gallery of completed jobs.
func (s *AnimationService) PublicJobs(ctx context.Context, limit, offset int, search string) (*models.JobPage, error) {
	return s.jobPage(ctx, "/jobs/public", limit, offset, search)
}

func (s *AnimationService) jobPage(ctx context.Context, path string, limit, offset int, search string) (*models.JobPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	endpoint := fmt.Sprintf("%s?limit=%d&offset=%d", path, limit, offset)
	if search != "" {
		endpoint += "&search=" + url.QueryEscape(search)
	}

	var page models.JobPage
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// Job retrieves a single job by ID.
func (s *AnimationService) Job(ctx context.Context, jobID string) (*models.Job, error) {
	endpoint := fmt.Sprintf("/jobs/%s", url.PathEscape(jobID))

	var job models.Job
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &job); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
		}
		return nil, err
	}

	return &job, nil
}

// DeleteJob deletes a job owned by the current user.
func (s *AnimationService) DeleteJob(ctx context.Context, jobID string) error {
	endpoint := fmt.Sprintf("/jobs/%s", url.PathEscape(jobID))

	if err := s.doRequest(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
		}
		return err
	}

	return nil
}

// Health retrieves the backend health check.
func (s *AnimationService) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := s.doRequest(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Stats retrieves backend job statistics.
func (s *AnimationService) Stats(ctx context.Context) (*StatsResponse, error) {
	var stats StatsResponse
	if err := s.doRequest(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
