package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/repositories"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/desertthunder/animx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ConversationsList prints the user's conversations, newest first.
func (r *Runner) ConversationsList(ctx context.Context, cmd *cli.Command) error {
	conversations, err := r.api.ListConversations(ctx, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(conversations, true)
	}

	if len(conversations) == 0 {
		r.writePlain("No conversations yet. Start one with 'animx generate'.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Conversations (%d)", len(conversations)))
	for _, conv := range conversations {
		r.writePlain("%s  %s (%d animations)\n", conv.ConversationID, conv.Title, len(conv.Jobs))
	}

	return nil
}

// ConversationsCreate creates an empty conversation with the given title.
func (r *Runner) ConversationsCreate(ctx context.Context, cmd *cli.Command) error {
	title := cmd.StringArg("title")
	if title == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}

	conv, err := r.api.CreateConversation(ctx, title)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(conv, true)
	}

	r.writePlain("✓ Created conversation %s: %s\n", conv.ConversationID, conv.Title)
	return nil
}

// ConversationsShow prints a conversation transcript.
func (r *Runner) ConversationsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: conversation id", shared.ErrMissingArgument)
	}

	conv, err := r.api.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	transcript := session.ProjectTranscript(conv.Jobs, r.api.VideoURL)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"conversation": conv,
			"transcript":   transcript,
		}, true)
	}

	r.writePlainHeader(conv.Title)
	for _, msg := range transcript {
		switch msg.Role {
		case models.RoleUser:
			r.writePlain("You: %s\n", msg.Content)
		default:
			r.writePlain("animx: %s\n", msg.Content)
			if msg.VideoURL != "" {
				r.writePlain("  %s\n", msg.VideoURL)
			}
		}
	}

	return nil
}

// ConversationsRename updates a conversation's title.
func (r *Runner) ConversationsRename(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	title := cmd.StringArg("title")
	if id == "" || title == "" {
		return fmt.Errorf("%w: conversation id and title", shared.ErrMissingArgument)
	}

	conv, err := r.api.RenameConversation(ctx, id, title)
	if err != nil {
		return err
	}

	r.writePlain("✓ Renamed conversation %s to: %s\n", conv.ConversationID, conv.Title)
	return nil
}

// ConversationsDelete deletes a conversation remotely.
func (r *Runner) ConversationsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: conversation id", shared.ErrMissingArgument)
	}

	if err := r.api.DeleteConversation(ctx, id); err != nil {
		return err
	}

	r.writePlain("✓ Deleted conversation %s\n", id)
	return nil
}

// ConversationsSync mirrors remote conversations and their jobs into the
// local cache database.
func (r *Runner) ConversationsSync(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	convRepo := repositories.NewConversationRepository(db)
	jobRepo := repositories.NewJobRepository(db)

	conversations, err := r.api.ListConversations(ctx, 100, 0)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	var synced, jobCount int
	for _, conv := range conversations {
		detail, err := r.api.GetConversation(ctx, conv.ConversationID)
		if err != nil {
			r.logger.Warn("skipping conversation", "id", conv.ConversationID, "error", err)
			continue
		}

		if err := convRepo.Upsert(models.NewCachedConversation(0, *detail)); err != nil {
			r.logger.Warn("failed to cache conversation", "id", conv.ConversationID, "error", err)
			continue
		}

		for _, job := range detail.Jobs {
			if job.ConversationID == "" {
				job.ConversationID = detail.ConversationID
			}
			if err := jobRepo.Upsert(models.NewCachedJob(0, job)); err != nil {
				r.logger.Warn("failed to cache job", "id", job.JobID, "error", err)
				continue
			}
			jobCount++
		}

		synced++
	}

	r.writePlain("✓ Synced %d conversations (%d jobs) to %s\n", synced, jobCount, r.config.Database.Path)
	return nil
}

// ConversationsHistory lists cached conversations from the local database,
// available offline after a sync.
func (r *Runner) ConversationsHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	convRepo := repositories.NewConversationRepository(db)
	jobRepo := repositories.NewJobRepository(db)

	cached, err := convRepo.List(nil)
	if err != nil {
		return fmt.Errorf("failed to read cached conversations: %w", err)
	}

	if len(cached) == 0 {
		r.writePlain("No cached conversations. Run 'animx conversations sync' first.\n")
		return nil
	}

	if cmd.Bool("json") {
		conversations := make([]models.Conversation, 0, len(cached))
		for _, c := range cached {
			conversations = append(conversations, c.Conversation())
		}
		return r.writeJSON(conversations, true)
	}

	r.writePlainHeader(fmt.Sprintf("Cached Conversations (%d)", len(cached)))
	for _, c := range cached {
		jobs, err := jobRepo.List(map[string]any{"conversation_id": c.RemoteID()})
		if err != nil {
			r.logger.Warn("failed to read cached jobs", "conversation", c.RemoteID(), "error", err)
		}
		r.writePlain("%s  %s (%d animations, synced %s)\n",
			c.RemoteID(), c.Title(), len(jobs), c.SyncedAt().Format("2006-01-02 15:04"))
	}

	return nil
}

// ConversationsExport runs a bulk transcript export over the given
// conversation ids, or all of them when none are given.
func (r *Runner) ConversationsExport(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output-dir"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.exporter.Run(ctx, progress, cmd.StringArgs("ids"), opts)
	close(progress)
	<-done

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainln("✓ Export complete")
	r.writePlain("Exported: %d/%d conversations\n", result.SuccessfulExports, result.TotalConversations)
	if result.FailedExports > 0 {
		r.writePlain("Failed: %d\n", result.FailedExports)
	}
	r.writePlain("Output: %s\n", result.OutputDirectory)

	return nil
}

// conversationsCommand groups conversation management actions.
func conversationsCommand(r *Runner) *cli.Command {
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}

	return &cli.Command{
		Name:    "conversations",
		Aliases: []string{"conv"},
		Usage:   "Manage conversations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List conversations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.IntFlag{Name: "offset"},
					jsonFlag,
				},
				Action: r.ConversationsList,
			},
			{
				Name:      "create",
				Usage:     "Create a conversation",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.ConversationsCreate,
			},
			{
				Name:      "show",
				Usage:     "Print a conversation transcript",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.ConversationsShow,
			},
			{
				Name:      "rename",
				Usage:     "Rename a conversation",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "title"}},
				Action:    r.ConversationsRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a conversation",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.ConversationsDelete,
			},
			{
				Name:   "sync",
				Usage:  "Mirror remote conversations into the local cache",
				Action: r.ConversationsSync,
			},
			{
				Name:   "history",
				Usage:  "List cached conversations (works offline)",
				Flags:  []cli.Flag{jsonFlag},
				Action: r.ConversationsHistory,
			},
			{
				Name:      "export",
				Usage:     "Export conversation transcripts to files",
				Arguments: []cli.Argument{&cli.StringArgs{Name: "ids", Max: -1}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "json, csv, markdown, or txt"},
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Output directory"},
					&cli.IntFlag{Name: "workers", Value: 5, Usage: "Concurrent workers (1-10)"},
					&cli.FloatFlag{Name: "rate", Value: 5.0, Usage: "Requests per second"},
					jsonFlag,
				},
				Action: r.ConversationsExport,
			},
		},
	}
}
