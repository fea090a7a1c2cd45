// Shared request/response types for the animation backend.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/desertthunder/animx/internal/models"
)

// DefaultErrorMessage is reported for failed jobs that carry no reason.
const DefaultErrorMessage = "Unknown error occurred"

// Service defines the operations the animation backend exposes to clients.
type Service interface {
	// Generate submits a prompt and returns the queued job.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// JobStatus retrieves the current state of a job.
	JobStatus(ctx context.Context, jobID string) (*StatusResponse, error)

	// VideoURL returns the streaming URL for a completed job's video.
	// The URL is always derived from the configured base URL, never
	// taken from a server response.
	VideoURL(jobID string) string

	// StreamVideo copies the rendered video for a job into w.
	StreamVideo(ctx context.Context, jobID string, w io.Writer) (int64, error)

	// Name returns the name of the service.
	Name() string
}

// GenerateRequest is the body of a generation submission.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// GenerateResponse is the backend's acknowledgement of a queued job.
type GenerateResponse struct {
	JobID   string        `json:"job_id"`
	Status  models.Status `json:"status"`
	Message string        `json:"message"`
}

// StatusResponse is one observation of a job's state from the status
// endpoint. Every poll response is authoritative; callers should not
// merge fields across polls.
type StatusResponse struct {
	JobID        string        `json:"job_id"`
	Status       models.Status `json:"status"`
	VideoURL     string        `json:"video_url"`
	Code         string        `json:"code"`
	ErrorMessage string        `json:"error_message"`
	ExecutionLog string        `json:"execution_log"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

// UnmarshalJSON accepts the legacy "generated_code" field name as an
// alias for "code", preferring "code" when both are present.
func (s *StatusResponse) UnmarshalJSON(data []byte) error {
	type alias StatusResponse
	aux := struct {
		*alias
		GeneratedCode string `json:"generated_code,omitempty"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if s.Code == "" && aux.GeneratedCode != "" {
		s.Code = aux.GeneratedCode
	}
	return nil
}

// FailureReason returns the failure message for a failed job, falling
// back to [DefaultErrorMessage] when the backend supplied none.
func (s *StatusResponse) FailureReason() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	return DefaultErrorMessage
}

// HealthResponse is the backend health check payload.
type HealthResponse struct {
	Status           string `json:"status"`
	GeminiConfigured bool   `json:"gemini_configured"`
	Model            string `json:"model"`
	RedisURL         string `json:"redis_url"`
	Version          string `json:"version"`
}

// StatsResponse is the backend job statistics payload.
type StatsResponse struct {
	TotalJobs   int     `json:"total_jobs"`
	Pending     int     `json:"pending"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// StatusError is a non-2xx response from the backend, carrying the HTTP
// status code and the detail message from the error body when present.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Retryable reports whether the request may be retried. Server errors
// are transient; client errors are not.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// QuotaExhausted reports whether the backend rejected the request
// because the free generation quota ran out.
func (e *StatusError) QuotaExhausted() bool {
	return e.StatusCode == 402
}
