// Package web implements an HTMX-based web application mirroring the TUI functionality.
//
// # HTMX Web Application Implementation Plan
//
// # Architecture
//
// The web app replicates the chat-style TUI workflow using server-side rendering
// with HTMX for dynamic updates. Each view corresponds to a template and handler:
//
//  1. Conversation List: Server-rendered table with hx-get for transcript preview
//  2. Transcript View: HTMX partial swap showing messages + prompt form
//  3. Prompt Submit: hx-post trigger starting a generation run
//  4. Progress Monitor: SSE (Server-Sent Events) streaming poll updates
//  5. Result Display: Embedded video player with the streamed animation
//
// Core Components
//
//   - HTTP Server: net/http server with html/template rendering
//   - Service Integration: Uses same services.AnimationService and tasks.GenerationEngine as TUI
//   - Session Management: Cookie-based sessions for sign-in state and user tracking
//   - SSE Handler: Streams real-time progress during generation
//
// Routes
//
//	GET  /                            → Conversation list view (requires auth)
//	GET  /auth/login                  → Sign-in initiation
//	GET  /auth/callback               → Sign-in completion
//	GET  /conversations/{id}          → HTMX partial: transcript
//	POST /generate                    → Start generation, return SSE endpoint
//	GET  /generate/{jobId}/stream     → SSE progress stream
//	GET  /generate/{jobId}/result     → Final result view with video embed
//
// Templates
//
//   - base.html: Layout with navigation, auth status
//   - conversations.html: Table with hx-get on rows
//   - transcript.html: Partial template for message history
//   - progress.html: SSE consumer with status line
//   - result.html: Video player sourced from the stream endpoint
//
// # State Management
//
// Unlike the TUI's in-memory state, the web app persists state in:
//   - Session cookies: Authentication tokens, user ID
//   - Cached conversation and job records: History across requests
//   - In-memory channels: SSE connections for active generations
//
// # Progress Streaming
//
// Generation progress uses Server-Sent Events:
//  1. POST /generate submits the prompt, returns job ID
//  2. Client opens SSE connection to /generate/{jobId}/stream
//  3. Handler launches goroutine running GenerationEngine.Generate
//  4. Progress channel updates stream as SSE events
//  5. On completion, send "done" event with the result URL
//
// Authentication Flow
//
//  1. User visits /, redirected to /auth/login if not authenticated
//  2. OAuth dance stores tokens in session
//  3. Session middleware validates tokens on protected routes
//  4. Expired tokens trigger reauthorization flow
//
// Dependencies
//
//   - html/template: Server-side rendering
//   - net/http: HTTP server and SSE
//   - gorilla/sessions or similar: Cookie management
//
// Implementation Tasks
//
//  1. HTTP server setup with route registration
//  2. Template structure with HTMX integration
//  3. Session middleware for auth state
//  4. Conversation list handler with service integration
//  5. Transcript handler (HTMX partial)
//  6. Generate endpoint submitting the prompt
//  7. SSE handler streaming progress updates
//  8. Result handler embedding the templated stream URL
//  9. Sign-in handlers wrapping the existing callback server
//  10. Error handling and validation
//
// # Testing Strategy
//
// Use httptest:
//   - Mock the backend client for conversation/job data
//   - Mock the generation engine for runs
//   - Validate HTMX headers and response structure
//   - Test SSE stream formatting
package web
