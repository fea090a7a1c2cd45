package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/desertthunder/animx/internal/shared"
	"github.com/desertthunder/animx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Generate submits a prompt, polls the job to a terminal state, and prints
// the outcome.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	prompt := cmd.StringArg("prompt")
	if prompt == "" {
		return fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	useJSON := cmd.Bool("json")
	outputPath := cmd.String("output")
	showCode := cmd.Bool("code")

	if convID := cmd.String("conversation"); convID != "" {
		if _, err := r.sess.LoadConversation(ctx, convID); err != nil {
			return err
		}
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if !useJSON {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Generate(ctx, progress, prompt)
	close(progress)
	wg.Wait()

	if errors.Is(err, shared.ErrQuotaExhausted) {
		r.writePlainln("✗ The shared API quota is exhausted.")
		r.writePlain("Provide your own Gemini key with 'animx auth key <key>' and try again.\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if useJSON {
		return r.writeJSON(result, true)
	}

	r.writePlainln("✓ Animation ready")
	r.writePlain("Job: %s\n", result.JobID)
	r.writePlain("Video: %s\n", result.VideoURL)

	if showCode && result.Code != "" {
		r.writePlainln("Scene code:")
		r.writePlain("%s\n", result.Code)
	}

	if outputPath != "" {
		if err := r.saveVideo(ctx, result.JobID, outputPath); err != nil {
			return err
		}
		r.writePlain("Saved to: %s\n", outputPath)
	}

	return nil
}

// saveVideo streams the rendered animation to a local file.
func (r *Runner) saveVideo(ctx context.Context, jobID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	n, err := r.api.StreamVideo(ctx, jobID, f)
	if err != nil {
		return fmt.Errorf("failed to download video: %w", err)
	}

	r.logger.Info("video downloaded", "job", jobID, "bytes", n)
	return nil
}

// generateCommand handles one-shot animation generation.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate an animation from a prompt",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "prompt",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conversation",
				Usage:   "Conversation ID to attach the job to",
				Aliases: []string{"conv"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Save the rendered video to this path",
			},
			&cli.BoolFlag{
				Name:  "code",
				Usage: "Print the generated scene code",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Generate,
	}
}
