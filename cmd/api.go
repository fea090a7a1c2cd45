package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/animx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	useJSON := cmd.Bool("json")

	r.logger.Info("GET request", "path", path)

	resp, err := r.rest.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if useJSON {
		if resp.IsJSON {
			return r.writeJSON(resp.JSONData, false)
		}
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
		return nil
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	resp, err := r.rest.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, true)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}

// APIHealth prints the backend health check.
func (r *Runner) APIHealth(ctx context.Context, cmd *cli.Command) error {
	health, err := r.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, true)
	}

	r.writePlainHeader("Backend Health")
	r.writePlain("Status: %s\n", health.Status)
	r.writePlain("Model: %s\n", health.Model)
	r.writePlain("Gemini configured: %v\n", health.GeminiConfigured)
	if health.Version != "" {
		r.writePlain("Version: %s\n", health.Version)
	}

	return nil
}

// APIStats prints backend job statistics.
func (r *Runner) APIStats(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.api.Stats(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Job Statistics")
	r.writePlain("Total jobs: %d\n", stats.TotalJobs)
	r.writePlain("Pending: %d\n", stats.Pending)
	r.writePlain("Completed: %d\n", stats.Completed)
	r.writePlain("Failed: %d\n", stats.Failed)
	r.writePlain("Success rate: %.1f%%\n", stats.SuccessRate)

	return nil
}

// APIDump fetches and displays the full backend state.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.Bool("save")

	r.logger.Info("dumping API state")
	r.writePlain("Fetching backend state...\n\n")

	type DumpData struct {
		Health        any   `json:"health"`
		Stats         any   `json:"stats,omitempty"`
		Conversations any   `json:"conversations,omitempty"`
		Jobs          any   `json:"jobs,omitempty"`
		Gallery       any   `json:"gallery,omitempty"`
		Errors        []any `json:"errors,omitempty"`
	}

	dump := DumpData{
		Errors: []any{},
	}

	fetch := func(label, endpoint string, target *any) {
		r.writePlain("Fetching %s...\n", label)
		resp, err := r.rest.Get(ctx, endpoint)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			*target = resp.JSONData
			return
		}

		detail := "request failed"
		if err != nil {
			detail = err.Error()
		} else {
			detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		dump.Errors = append(dump.Errors, map[string]string{"endpoint": endpoint, "error": detail})
		r.logger.Warn("failed to fetch "+label, "error", detail)
	}

	fetch("health status", "/health", &dump.Health)
	fetch("job statistics", "/stats", &dump.Stats)
	fetch("conversations", "/conversations/", &dump.Conversations)
	fetch("jobs", "/jobs/", &dump.Jobs)
	fetch("gallery", "/jobs/public", &dump.Gallery)

	r.writePlain("\n✓ Dump complete\n\n")

	if save {
		saveFile := "api_dump.json"
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := os.WriteFile(saveFile, data, 0644); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", saveFile)
			r.writePlain("✓ Dump saved to %s\n\n", saveFile)
		}
	}

	return r.writeJSON(dump, pretty)
}

// apiCommand handles direct backend API calls and state dumps.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the animation backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:   "health",
				Usage:  "Backend health check",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.APIHealth,
			},
			{
				Name:   "stats",
				Usage:  "Backend job statistics",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.APIStats,
			},
			{
				Name:  "dump",
				Usage: "Full backend state dump (health, stats, conversations, jobs)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save dump to api_dump.json",
						Value: false,
					},
				},
				Action: r.APIDump,
			},
		},
	}
}
