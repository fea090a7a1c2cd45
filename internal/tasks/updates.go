package tasks

import (
	"fmt"

	"github.com/desertthunder/animx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	SubmitJob Phase = iota
	PollStatus
	Completed
	Failed
	ExportTranscript
)

func (p Phase) String() string {
	switch p {
	case SubmitJob:
		return "submit_job"
	case PollStatus:
		return "poll_status"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case ExportTranscript:
		return "export_transcript"
	default:
		return ""
	}
}

func submitUpdate(attempt, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitJob,
		Step:    attempt,
		Total:   total,
		Message: "Submitting generation job...",
	}
}

func retryUpdate(attempt, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SubmitJob,
		Step:    attempt,
		Total:   total,
		Message: fmt.Sprintf("Submission failed, retrying (%d/%d)...", attempt, total),
	}
}

func jobQueuedUpdate(jobID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollStatus,
		Step:    0,
		Total:   0,
		Message: fmt.Sprintf("Job queued: %s", jobID),
	}
}

func pollUpdate(attempt, total int, status models.Status) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollStatus,
		Step:    attempt,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", attempt, total, status.Display()),
		Data:    status,
	}
}

func completedUpdate(videoURL string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Animation ready: %s", videoURL),
		Data:    videoURL,
	}
}

func failedUpdate(reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Generation failed: %s", reason),
	}
}

func timeoutUpdate(attempts int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    attempts,
		Total:   attempts,
		Message: "Generation timed out",
	}
}

func exportingUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTranscript,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTranscript,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, title, path),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTranscript,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
