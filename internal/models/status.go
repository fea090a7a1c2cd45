package models

import "strings"

// Status is a job status tag.
//
// The backend emits a known set of tags but may append free-form detail to
// transitional ones (e.g. "rendering (retry 2/3)"). Control flow decisions
// use exact matches on the terminal tags only; transitional tags match by
// prefix and are otherwise display-only.
type Status string

const (
	StatusPending        Status = "pending"
	StatusGeneratingCode Status = "generating_code"
	StatusFixingCode     Status = "fixing_code"
	StatusRendering      Status = "rendering"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// Completed reports whether the job finished successfully. Exact match.
func (s Status) Completed() bool {
	return s == StatusCompleted
}

// Failed reports whether the job ended in failure. Exact match.
func (s Status) Failed() bool {
	return s == StatusFailed
}

// Terminal reports whether the status ends polling.
func (s Status) Terminal() bool {
	return s.Completed() || s.Failed()
}

// InProgress reports whether the status represents a job the server is still
// working on when projecting persisted history. Matches by prefix so
// suffixed detail tags ("rendering (retry 2/3)") are included.
func (s Status) InProgress() bool {
	for _, tag := range []Status{StatusPending, StatusGeneratingCode, StatusRendering} {
		if strings.HasPrefix(string(s), string(tag)) {
			return true
		}
	}
	return false
}

// Base strips any free-form detail suffix, returning the known tag prefix.
// Unknown tags are returned unchanged.
func (s Status) Base() Status {
	for _, tag := range []Status{StatusPending, StatusGeneratingCode, StatusFixingCode, StatusRendering, StatusCompleted, StatusFailed} {
		if strings.HasPrefix(string(s), string(tag)) {
			return tag
		}
	}
	return s
}

// Display returns a human-readable form of the status tag.
func (s Status) Display() string {
	switch s.Base() {
	case StatusPending:
		return "Queued"
	case StatusGeneratingCode:
		return "Generating code"
	case StatusFixingCode:
		return "Fixing code"
	case StatusRendering:
		return "Rendering"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}
