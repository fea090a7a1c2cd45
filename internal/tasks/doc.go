// Package tasks drives animation generation runs with real-time progress reporting.
//
// # Core Operations
//
//  1. [GenerationEngine.Generate] : One generation run, submission to terminal outcome
//     - Ensures a conversation exists (created lazily from the prompt, failure non-fatal)
//     - Submits the prompt with bounded retry (3 attempts, fixed 1s backoff, 5xx only)
//     - Polls job status every 5 seconds up to 120 attempts
//     - Reconciles the terminal state into the session transcript
//
//  2. [ExportEngine.Run] : Bulk transcript export
//     - Fetches each conversation's detail with a rate-limited worker pool
//     - Writes formatted transcripts to disk, one file per conversation
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Supersession
//
// Exactly one generation is considered current. Starting a new run (or loading
// a conversation) supersedes the previous one: its session mutations become
// no-ops and the stale engine returns [shared.ErrSuperseded] instead of
// touching the transcript.
//
// # Quota Gate
//
// An HTTP 402 on submission is never a generic failure. The engine halts,
// flags the session as key-required, and returns [shared.ErrQuotaExhausted];
// the caller routes the user to the key-entry flow.
package tasks
