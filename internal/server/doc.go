// Package server provides HTTP routing, middleware, and the sign-in callback flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Sign-In Flow
//
// [RunLoginFlow] ties the pieces together for the CLI: it starts a temporary
// HTTP server on the configured host and port, opens the identity provider's
// consent page in the browser, handles the callback, and shuts down after
// receiving the token. The caller persists the token alongside the fallback
// API key in the credentials file.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
