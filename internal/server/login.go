package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// loginTimeout bounds how long the callback server waits for the browser.
const loginTimeout = 5 * time.Minute

// BuildOAuthConfig maps the identity provider settings onto an oauth2 config.
func BuildOAuthConfig(auth shared.AuthConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    auth.ClientID,
		RedirectURL: auth.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  auth.AuthURL,
			TokenURL: auth.TokenURL,
		},
	}
}

// RunLoginFlow starts a temporary local HTTP server, opens the provider's
// consent page in the browser, and waits for the authorization callback.
//
// The server shuts down once a single callback has been processed or the
// timeout elapses. The returned token carries the session credentials to
// persist.
func RunLoginFlow(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*oauth2.Token, error) {
	if cfg.Auth.ClientID == "" || cfg.Auth.AuthURL == "" || cfg.Auth.TokenURL == "" {
		return nil, fmt.Errorf("%w: auth config incomplete", shared.ErrInvalidConfig)
	}

	oauthCfg := BuildOAuthConfig(cfg.Auth)
	state := uuid.NewString()
	handler := NewOAuthHandler(oauthCfg, state)

	router := NewBasicRouter()
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	logger.Info("opening browser for sign in", "url", authURL)
	if err := shared.OpenBrowser(authURL); err != nil {
		logger.Warn("could not open browser, visit the URL manually", "error", err)
	}

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		return result.Token, nil
	case err := <-errChan:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-time.After(loginTimeout):
		return nil, fmt.Errorf("timed out waiting for sign in")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
