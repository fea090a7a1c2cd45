package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/animx/internal/server"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser sign-in flow and persists the session token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	token, err := server.RunLoginFlow(ctx, r.config, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	creds, err := session.LoadCredentials(r.credsPath)
	if err != nil {
		return err
	}

	creds.Token = token.AccessToken
	creds.RefreshToken = token.RefreshToken
	creds.Expiry = token.Expiry

	if err := creds.Save(r.credsPath); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.api.SetToken(creds.Token)
	r.rest.SetToken(creds.Token)
	r.sess.SetAuthenticated(true)

	r.logger.Info("signed in", "credentials", r.credsPath)
	return r.writePlain("✓ Signed in\n")
}

// AuthKey stores a fallback Gemini API key for when the shared quota runs out.
func (r *Runner) AuthKey(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: key", shared.ErrMissingArgument)
	}

	creds, err := session.LoadCredentials(r.credsPath)
	if err != nil {
		return err
	}

	creds.APIKey = key
	if err := creds.Save(r.credsPath); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.api.SetAPIKey(key)
	r.rest.SetAPIKey(key)
	r.sess.SetAPIKey(key)

	return r.writePlain("✓ API key saved. Run 'animx generate' again to use it.\n")
}

// AuthImport extracts credentials from a browser "Copy as cURL" capture of a
// web client request and persists them.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var headers *shared.CurlHeaders
	var err error
	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
	} else {
		headers, err = shared.ParseCurlCommand([]byte(curlCmd))
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	token := headers.BearerToken()
	key := headers.APIKey()
	if token == "" && key == "" {
		return fmt.Errorf("%w: no session token or API key found in cURL command", shared.ErrInvalidInput)
	}

	creds, err := session.LoadCredentials(r.credsPath)
	if err != nil {
		return err
	}

	if token != "" {
		creds.Token = token
		r.api.SetToken(token)
		r.rest.SetToken(token)
		r.sess.SetAuthenticated(true)
	}
	if key != "" {
		creds.APIKey = key
		r.api.SetAPIKey(key)
		r.rest.SetAPIKey(key)
		r.sess.SetAPIKey(key)
	}

	if err := creds.Save(r.credsPath); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.writePlain("✓ Imported credentials")
	if token != "" {
		r.writePlain(" (session token")
		if key != "" {
			r.writePlain(", API key")
		}
		r.writePlain(")")
	} else if key != "" {
		r.writePlain(" (API key)")
	}
	r.writePlain("\n")
	return nil
}

// AuthStatus reports backend reachability and locally stored credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking auth status")

	health, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	r.writePlain("✓ Service is healthy\n")
	r.writePlain("Status: %s\n", health.Status)

	creds, err := session.LoadCredentials(r.credsPath)
	if err != nil {
		r.logger.Warn("could not read credentials", "error", err)
		creds = &session.Credentials{}
	}

	switch {
	case creds.Token == "":
		r.writePlain("Session: ✗ Not signed in\n")
	case creds.Expired():
		r.writePlain("Session: ✗ Expired, run 'animx auth login'\n")
	default:
		r.writePlain("Session: ✓ Signed in\n")
	}

	if creds.APIKey != "" {
		r.writePlain("Fallback key: ✓ Configured\n")
	} else {
		r.writePlain("Fallback key: ✗ Not configured\n")
	}

	return nil
}

// authCommand groups authentication actions.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser",
				Action: r.AuthLogin,
			},
			{
				Name:      "key",
				Usage:     "Store a fallback Gemini API key",
				Arguments: []cli.Argument{&cli.StringArg{Name: "key"}},
				Action:    r.AuthKey,
			},
			{
				Name:  "import",
				Usage: "Import credentials from a browser cURL capture",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "curl", Usage: "cURL command string"},
					&cli.StringFlag{Name: "curl-file", Usage: "Path to a file containing the cURL command"},
				},
				Action: r.AuthImport,
			},
			{
				Name:   "status",
				Usage:  "Check service health and credential state",
				Action: r.AuthStatus,
			},
		},
	}
}
