// Package services defines the [Service] interface for the animation generation backend and implements it in [AnimationService].
//
// # Service Interface
//
// The interface covers the generation lifecycle: submit a prompt, poll job status, and stream the rendered video.
//
// # Animation Implementation
//
// [AnimationService] is the typed HTTP client. It attaches the session bearer token and, when set,
// the user-supplied fallback Gemini key (x-gemini-api-key) to every request. Beyond the core
// lifecycle it covers conversation CRUD, job listings (including the public gallery), and backend
// health and statistics.
//
// Video URLs are always derived locally from the configured base URL; URLs echoed in server
// responses are ignored.
//
// # Raw API Access
//
// [APIService] makes raw GET/POST requests against the same backend for debugging and scripting,
// throttled by a [rate.Limiter].
//
// # Error Handling
//
// Non-2xx responses surface as [*StatusError] carrying the HTTP status code and the backend's
// detail message. Services also use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no session token configured
//   - [shared.ErrJobNotFound] : job ID not found
//   - [shared.ErrConversationNotFound] : conversation ID not found
//   - [shared.ErrQuotaExhausted] : free generation quota ran out (HTTP 402)
package services
