package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrQuotaExhausted   = fmt.Errorf("free generation quota exhausted")

	// API and service errors
	ErrAPIRequest           = fmt.Errorf("API request failed")
	ErrServiceUnavailable   = fmt.Errorf("service unavailable")
	ErrJobNotFound          = fmt.Errorf("job not found")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrGenerationFailed     = fmt.Errorf("generation failed")
	ErrGenerationTimeout    = fmt.Errorf("generation timed out")
	ErrSuperseded           = fmt.Errorf("generation superseded by a newer run")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
