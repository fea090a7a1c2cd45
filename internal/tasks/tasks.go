// package tasks drives animation generation runs against the backend.
//
// The core abstraction is GenerationEngine, which owns one generation
// request from submission through polling to a terminal outcome, recording
// every state change in the session store. Operations emit progress updates
// via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/animx/internal/services"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
)

// Submission and polling bounds. Poll interval and attempt ceiling are
// configurable through [GenerationEngine.ConfigurePolling]; the retry
// budget for submission is fixed.
const (
	submitAttempts      = 3
	defaultRetryDelay   = time.Second
	defaultPollInterval = 5 * time.Second
	defaultPollAttempts = 120
)

// GenerationAPI is the slice of the backend client the engine needs.
type GenerationAPI interface {
	Generate(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error)
	JobStatus(ctx context.Context, jobID string) (*services.StatusResponse, error)
	VideoURL(jobID string) string
}

// GenerationResult is the terminal outcome of one generation run.
type GenerationResult struct {
	JobID       string
	VideoURL    string // Templated stream URL, set on success
	Code        string // Generated scene code, when returned
	Error       string // Failure reason, set on failure or timeout
	KeyRequired bool   // Quota exhausted, user must supply a key
	TimedOut    bool   // Poll budget elapsed without a terminal status
	Superseded  bool   // A newer run took over before this one finished
}

// GenerationEngine runs generation requests: submission with bounded retry,
// status polling with a timeout, and terminal-state reconciliation into the
// session transcript.
type GenerationEngine struct {
	api     GenerationAPI
	session *session.Session
	logger  *log.Logger

	retryDelay   time.Duration
	pollInterval time.Duration
	pollAttempts int
}

// NewGenerationEngine creates an engine bound to a session store.
func NewGenerationEngine(api GenerationAPI, sess *session.Session, logger *log.Logger) *GenerationEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &GenerationEngine{
		api:          api,
		session:      sess,
		logger:       logger,
		retryDelay:   defaultRetryDelay,
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
	}
}

// ConfigurePolling overrides the poll cadence. Non-positive values keep the
// defaults (5s interval, 120 attempts).
func (e *GenerationEngine) ConfigurePolling(interval time.Duration, maxAttempts int) {
	if interval > 0 {
		e.pollInterval = interval
	}
	if maxAttempts > 0 {
		e.pollAttempts = maxAttempts
	}
}

// setRetryDelay shortens the fixed submission backoff in tests.
func (e *GenerationEngine) setRetryDelay(d time.Duration) {
	e.retryDelay = d
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Generate drives one generation run from prompt to a terminal outcome.
//
// The user message is appended to the transcript before any network call;
// a new run supersedes any in-flight one, whose remaining state changes
// become no-ops. Quota exhaustion (HTTP 402) returns
// [shared.ErrQuotaExhausted] with KeyRequired set and appends no failure
// message.
func (e *GenerationEngine) Generate(ctx context.Context, progress chan<- ProgressUpdate, prompt string) (*GenerationResult, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	run := e.session.StartGeneration(prompt)
	conversationID := e.session.EnsureConversation(ctx, prompt)

	resp, result, err := e.submit(ctx, progress, run, prompt, conversationID)
	if resp == nil {
		return result, err
	}

	if !e.session.BeginJob(run, resp.JobID) {
		return &GenerationResult{JobID: resp.JobID, Superseded: true}, shared.ErrSuperseded
	}
	sendProgress(progress, jobQueuedUpdate(resp.JobID))

	return e.poll(ctx, progress, run, resp.JobID)
}

// submit runs the bounded retry loop. A nil response means the run ended at
// submission; the accompanying result and error describe the outcome.
func (e *GenerationEngine) submit(ctx context.Context, progress chan<- ProgressUpdate, run, prompt, conversationID string) (*services.GenerateResponse, *GenerationResult, error) {
	req := services.GenerateRequest{Prompt: prompt, ConversationID: conversationID}

	var lastErr error
	for attempt := 1; attempt <= submitAttempts; attempt++ {
		sendProgress(progress, submitUpdate(attempt, submitAttempts))

		resp, err := e.api.Generate(ctx, req)
		if err == nil {
			return resp, nil, nil
		}
		lastErr = err

		var se *services.StatusError
		if errors.As(err, &se) {
			if se.QuotaExhausted() {
				e.session.RequireKey(run)
				return nil, &GenerationResult{KeyRequired: true}, shared.ErrQuotaExhausted
			}
			if !se.Retryable() {
				// Client errors are final on the first response.
				e.session.FailSubmission(run, se.Error())
				return nil, &GenerationResult{Error: se.Error()}, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, err)
			}
		}

		if attempt < submitAttempts {
			sendProgress(progress, retryUpdate(attempt, submitAttempts))
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}
	}

	e.session.FailSubmission(run, lastErr.Error())
	return nil, &GenerationResult{Error: lastErr.Error()}, fmt.Errorf("%w: %v", shared.ErrGenerationFailed, lastErr)
}

// poll watches the job until a terminal status, the attempt ceiling, or
// supersession. Transient poll failures are logged and skipped.
func (e *GenerationEngine) poll(ctx context.Context, progress chan<- ProgressUpdate, run, jobID string) (*GenerationResult, error) {
	for attempt := 1; attempt <= e.pollAttempts; attempt++ {
		select {
		case <-time.After(e.pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		status, err := e.api.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Debug("poll failed, skipping tick", "job", jobID, "attempt", attempt, "error", err)
			continue
		}

		switch {
		case status.Status.Completed():
			videoURL := e.api.VideoURL(jobID)
			if !e.session.CompleteJob(run, videoURL, status.Code) {
				return &GenerationResult{JobID: jobID, Superseded: true}, shared.ErrSuperseded
			}
			sendProgress(progress, completedUpdate(videoURL))
			return &GenerationResult{JobID: jobID, VideoURL: videoURL, Code: status.Code}, nil

		case status.Status.Failed():
			reason := status.FailureReason()
			if !e.session.FailJob(run, reason) {
				return &GenerationResult{JobID: jobID, Superseded: true}, shared.ErrSuperseded
			}
			sendProgress(progress, failedUpdate(reason))
			return &GenerationResult{JobID: jobID, Error: reason}, fmt.Errorf("%w: %s", shared.ErrGenerationFailed, reason)

		default:
			if !e.session.UpdateStatus(run, status.Status) {
				return &GenerationResult{JobID: jobID, Superseded: true}, shared.ErrSuperseded
			}
			sendProgress(progress, pollUpdate(attempt, e.pollAttempts, status.Status))
		}
	}

	if !e.session.TimeoutJob(run) {
		return &GenerationResult{JobID: jobID, Superseded: true}, shared.ErrSuperseded
	}
	sendProgress(progress, timeoutUpdate(e.pollAttempts))
	return &GenerationResult{JobID: jobID, TimedOut: true, Error: session.TimeoutMessage}, fmt.Errorf("%w after %d attempts", shared.ErrGenerationTimeout, e.pollAttempts)
}
