package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/animx/internal/services"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/urfave/cli/v3"
)

// newApp assembles the root command tree for the given runner.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:     "animx",
		Usage:    "Generate Manim animations from natural language prompts",
		Version:  "0.3.0",
		Commands: runner.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	api := services.NewAnimationService(config.API.BaseURL, nil)
	rest := services.NewAPIService(config.API.BaseURL, nil, config.API.RateLimit)

	var authed bool
	credsPath, err := config.Auth.ResolveCredentialsPath()
	if err != nil {
		logger.Warn("could not resolve credentials path", "error", err)
	} else if creds, err := session.LoadCredentials(credsPath); err == nil {
		if creds.Token != "" && !creds.Expired() {
			api.SetToken(creds.Token)
			rest.SetToken(creds.Token)
			authed = true
		}
		if creds.APIKey != "" {
			api.SetAPIKey(creds.APIKey)
			rest.SetAPIKey(creds.APIKey)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:    config,
		API:       api,
		REST:      rest,
		Logger:    logger,
		CredsPath: credsPath,
	})
	runner.sess.SetAuthenticated(authed)

	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
