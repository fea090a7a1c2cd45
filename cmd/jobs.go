package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/urfave/cli/v3"
)

// JobsList prints the user's generation jobs.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	page, err := r.api.ListJobs(ctx, cmd.Int("limit"), cmd.Int("offset"), cmd.String("search"))
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	return r.printJobPage(page, "Jobs", cmd.Bool("json"))
}

// JobsGallery prints the public gallery of completed jobs.
func (r *Runner) JobsGallery(ctx context.Context, cmd *cli.Command) error {
	page, err := r.api.PublicJobs(ctx, cmd.Int("limit"), cmd.Int("offset"), cmd.String("search"))
	if err != nil {
		return fmt.Errorf("failed to fetch gallery: %w", err)
	}

	return r.printJobPage(page, "Gallery", cmd.Bool("json"))
}

func (r *Runner) printJobPage(page *models.JobPage, title string, useJSON bool) error {
	if useJSON {
		return r.writeJSON(page, true)
	}

	if len(page.Jobs) == 0 {
		r.writePlain("No jobs found.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d of %d)", title, len(page.Jobs), page.Total))
	for _, job := range page.Jobs {
		r.writePlain("%s  [%s]  %s\n", job.JobID, job.Status.Display(), job.Prompt)
	}

	return nil
}

// JobsShow prints a single job's detail.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	job, err := r.api.Job(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}

	r.writePlainHeader(fmt.Sprintf("Job %s", job.JobID))
	r.writePlain("Status: %s\n", job.Status.Display())
	r.writePlain("Prompt: %s\n", job.Prompt)
	if job.Status.Completed() {
		r.writePlain("Video: %s\n", r.api.VideoURL(job.JobID))
		if job.Duration > 0 {
			r.writePlain("Render time: %s\n", shared.FormatDuration(job.Duration))
		}
	}
	if job.Status.Failed() && job.ErrorMessage != "" {
		r.writePlain("Error: %s\n", job.ErrorMessage)
	}
	if cmd.Bool("code") && job.Code != "" {
		r.writePlainln("Scene code:")
		r.writePlain("%s\n", job.Code)
	}

	return nil
}

// JobsDelete deletes a job owned by the current user.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	if err := r.api.DeleteJob(ctx, id); err != nil {
		return err
	}

	r.writePlain("✓ Deleted job %s\n", id)
	return nil
}

// JobsVideo downloads a job's rendered video to a local file.
func (r *Runner) JobsVideo(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	path := cmd.String("output")
	if path == "" {
		path = id + ".mp4"
	}

	if err := r.saveVideo(ctx, id, path); err != nil {
		return err
	}

	r.writePlain("✓ Saved video to %s\n", path)
	return nil
}

// jobsCommand groups job inspection actions.
func jobsCommand(r *Runner) *cli.Command {
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
	pageFlags := []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 20},
		&cli.IntFlag{Name: "offset"},
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by prompt text"},
		jsonFlag,
	}

	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect generation jobs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your jobs",
				Flags:  pageFlags,
				Action: r.JobsList,
			},
			{
				Name:   "gallery",
				Usage:  "Browse the public gallery",
				Flags:  pageFlags,
				Action: r.JobsGallery,
			},
			{
				Name:      "show",
				Usage:     "Show a job's detail",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "code", Usage: "Print the generated scene code"},
					jsonFlag,
				},
				Action: r.JobsShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a job",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.JobsDelete,
			},
			{
				Name:      "video",
				Usage:     "Download a job's rendered video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path"},
				},
				Action: r.JobsVideo,
			},
		},
	}
}
