package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/services"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	tu "github.com/desertthunder/animx/internal/testing"
)

// mockService is a configurable GenerationAPI double. Unset function fields
// return zero values.
type mockService struct {
	GenerateFunc    func(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error)
	JobStatusFunc   func(ctx context.Context, jobID string) (*services.StatusResponse, error)
	StreamVideoFunc func(ctx context.Context, jobID string, w io.Writer) (int64, error)
	BaseURL         string
}

func (m *mockService) Generate(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &services.GenerateResponse{JobID: "mock-job", Status: "pending"}, nil
}

func (m *mockService) JobStatus(ctx context.Context, jobID string) (*services.StatusResponse, error) {
	if m.JobStatusFunc != nil {
		return m.JobStatusFunc(ctx, jobID)
	}
	return &services.StatusResponse{JobID: jobID, Status: "completed"}, nil
}

func (m *mockService) VideoURL(jobID string) string {
	base := m.BaseURL
	if base == "" {
		base = "http://mock"
	}
	return base + "/video/stream/" + jobID
}

func (m *mockService) StreamVideo(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	if m.StreamVideoFunc != nil {
		return m.StreamVideoFunc(ctx, jobID, w)
	}
	return 0, nil
}

func (m *mockService) Name() string { return "mock" }

// fakeConvAPI backs a session with canned conversation data.
type fakeConvAPI struct {
	conversations []models.Conversation
}

func (f *fakeConvAPI) ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error) {
	if offset >= len(f.conversations) {
		return nil, nil
	}
	return f.conversations[offset:], nil
}

func (f *fakeConvAPI) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	conv := models.Conversation{ConversationID: fmt.Sprintf("conv-%d", len(f.conversations)+1), Title: title}
	f.conversations = append(f.conversations, conv)
	return &conv, nil
}

func (f *fakeConvAPI) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	for i := range f.conversations {
		if f.conversations[i].ConversationID == conversationID {
			return &f.conversations[i], nil
		}
	}
	return nil, shared.ErrConversationNotFound
}

func (f *fakeConvAPI) DeleteConversation(ctx context.Context, conversationID string) error {
	return nil
}

func (f *fakeConvAPI) VideoURL(jobID string) string {
	return "http://backend/video/stream/" + jobID
}

func newTestEngine(api GenerationAPI) (*GenerationEngine, *session.Session) {
	sess := session.NewSession(&fakeConvAPI{}, nil)
	engine := NewGenerationEngine(api, sess, nil)
	engine.setRetryDelay(time.Millisecond)
	engine.ConfigurePolling(time.Millisecond, 5)
	return engine, sess
}

func lastMessage(t *testing.T, sess *session.Session) models.Message {
	t.Helper()
	transcript := sess.Transcript()
	if len(transcript) == 0 {
		t.Fatal("transcript is empty")
	}
	return transcript[len(transcript)-1]
}

func serverError(code int) error {
	return &services.StatusError{StatusCode: code, Detail: "backend error"}
}

func TestGenerationEngine_Generate(t *testing.T) {
	t.Run("Empty Prompt", func(t *testing.T) {
		engine, _ := newTestEngine(&mockService{})
		if _, err := engine.Generate(context.Background(), nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Succeeds After Transient Server Errors", func(t *testing.T) {
		var attempts atomic.Int32
		mock := &mockService{
			BaseURL: "http://backend",
			GenerateFunc: func(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
				if attempts.Add(1) < 3 {
					return nil, serverError(500)
				}
				return &services.GenerateResponse{JobID: "job-1", Status: "pending"}, nil
			},
		}
		engine, sess := newTestEngine(mock)

		result, err := engine.Generate(context.Background(), nil, "a bouncing ball")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got := attempts.Load(); got != 3 {
			t.Errorf("expected 3 submission attempts, got %d", got)
		}
		if result.VideoURL != "http://backend/video/stream/job-1" {
			t.Errorf("unexpected video URL %q", result.VideoURL)
		}

		msg := lastMessage(t, sess)
		if msg.Content != session.ReadyMessage || msg.VideoURL != result.VideoURL {
			t.Errorf("unexpected terminal message %+v", msg)
		}
	})

	t.Run("Gives Up After Three Attempts", func(t *testing.T) {
		var attempts atomic.Int32
		mock := &mockService{
			GenerateFunc: func(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
				attempts.Add(1)
				return nil, serverError(503)
			},
		}
		engine, sess := newTestEngine(mock)

		start := time.Now()
		_, err := engine.Generate(context.Background(), nil, "a spinning cube")
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if got := attempts.Load(); got != 3 {
			t.Errorf("expected 3 submission attempts, got %d", got)
		}
		if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
			t.Errorf("expected backoff between attempts, elapsed %v", elapsed)
		}

		msg := lastMessage(t, sess)
		if msg.Role != models.RoleAssistant || !strings.HasPrefix(msg.Content, "Generation failed") {
			t.Errorf("expected failure message, got %+v", msg)
		}
	})

	t.Run("Client Error Is Final", func(t *testing.T) {
		var attempts atomic.Int32
		mock := &mockService{
			GenerateFunc: func(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
				attempts.Add(1)
				return nil, serverError(400)
			},
		}
		engine, _ := newTestEngine(mock)

		if _, err := engine.Generate(context.Background(), nil, "a triangle"); !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("expected a single attempt for a client error, got %d", got)
		}
	})

	t.Run("Quota Exhaustion Requires A Key", func(t *testing.T) {
		var attempts atomic.Int32
		mock := &mockService{
			GenerateFunc: func(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
				attempts.Add(1)
				return nil, serverError(402)
			},
		}
		engine, sess := newTestEngine(mock)

		result, err := engine.Generate(context.Background(), nil, "a fractal zoom")
		if !errors.Is(err, shared.ErrQuotaExhausted) {
			t.Errorf("expected ErrQuotaExhausted, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("expected a single attempt on quota exhaustion, got %d", got)
		}
		if !result.KeyRequired || !sess.KeyRequired() {
			t.Error("expected key-required flag on result and session")
		}

		// The transcript carries no failure message, only the prompt.
		msg := lastMessage(t, sess)
		if msg.Role != models.RoleUser {
			t.Errorf("expected transcript to end on the user prompt, got %+v", msg)
		}
	})

	t.Run("Polls Until Completed", func(t *testing.T) {
		var polls atomic.Int32
		mock := &mockService{
			BaseURL: "http://backend",
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				if polls.Add(1) < 3 {
					return &services.StatusResponse{JobID: jobID, Status: models.StatusRendering}, nil
				}
				// The server-reported URL must never leak into the result.
				return &services.StatusResponse{
					JobID:    jobID,
					Status:   models.StatusCompleted,
					VideoURL: "http://other-host/videos/raw.mp4",
					Code:     "class Scene: pass",
				}, nil
			},
		}
		engine, sess := newTestEngine(mock)

		result, err := engine.Generate(context.Background(), nil, "a sine wave")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got := polls.Load(); got != 3 {
			t.Errorf("expected 3 polls, got %d", got)
		}
		if result.VideoURL != "http://backend/video/stream/mock-job" {
			t.Errorf("expected templated stream URL, got %q", result.VideoURL)
		}
		if result.Code != "class Scene: pass" {
			t.Errorf("unexpected code %q", result.Code)
		}

		msg := lastMessage(t, sess)
		if msg.VideoURL != result.VideoURL {
			t.Errorf("transcript video URL %q does not match result %q", msg.VideoURL, result.VideoURL)
		}
	})

	t.Run("Failed Job Uses Reported Reason", func(t *testing.T) {
		mock := &mockService{
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				return &services.StatusResponse{JobID: jobID, Status: models.StatusFailed, ErrorMessage: "render crashed"}, nil
			},
		}
		engine, sess := newTestEngine(mock)

		result, err := engine.Generate(context.Background(), nil, "a torus")
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed, got %v", err)
		}
		if result.Error != "render crashed" {
			t.Errorf("unexpected failure reason %q", result.Error)
		}
		if msg := lastMessage(t, sess); msg.Content != "Generation failed: render crashed" {
			t.Errorf("unexpected transcript message %q", msg.Content)
		}
	})

	t.Run("Times Out After Max Attempts", func(t *testing.T) {
		var polls atomic.Int32
		mock := &mockService{
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				polls.Add(1)
				return &services.StatusResponse{JobID: jobID, Status: models.StatusRendering}, nil
			},
		}
		engine, sess := newTestEngine(mock)
		engine.ConfigurePolling(time.Millisecond, 4)

		result, err := engine.Generate(context.Background(), nil, "an endless render")
		if !errors.Is(err, shared.ErrGenerationTimeout) {
			t.Errorf("expected ErrGenerationTimeout, got %v", err)
		}
		if got := polls.Load(); got != 4 {
			t.Errorf("expected 4 polls, got %d", got)
		}
		if !result.TimedOut {
			t.Error("expected TimedOut on result")
		}
		if msg := lastMessage(t, sess); msg.Content != session.TimeoutMessage {
			t.Errorf("unexpected transcript message %q", msg.Content)
		}
	})

	t.Run("Transient Poll Failures Are Skipped", func(t *testing.T) {
		var polls atomic.Int32
		mock := &mockService{
			BaseURL: "http://backend",
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				if polls.Add(1) < 3 {
					return nil, errors.New("connection reset")
				}
				return &services.StatusResponse{JobID: jobID, Status: models.StatusCompleted}, nil
			},
		}
		engine, _ := newTestEngine(mock)

		if _, err := engine.Generate(context.Background(), nil, "a resilient poll"); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
	})

	t.Run("Superseded Run Leaves Transcript Alone", func(t *testing.T) {
		var sess *session.Session
		mock := &mockService{
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				// A newer run takes over mid-poll.
				sess.StartGeneration("a newer prompt")
				return &services.StatusResponse{JobID: jobID, Status: models.StatusCompleted}, nil
			},
		}
		var engine *GenerationEngine
		engine, sess = newTestEngine(mock)

		result, err := engine.Generate(context.Background(), nil, "the stale prompt")
		if !errors.Is(err, shared.ErrSuperseded) {
			t.Errorf("expected ErrSuperseded, got %v", err)
		}
		if !result.Superseded {
			t.Error("expected Superseded on result")
		}
		if msg := lastMessage(t, sess); msg.Content != "a newer prompt" {
			t.Errorf("stale run mutated the transcript: %+v", msg)
		}
	})

	t.Run("Progress Updates Never Block", func(t *testing.T) {
		mock := &mockService{BaseURL: "http://backend"}
		engine, _ := newTestEngine(mock)

		// Unbuffered channel with no reader; sends must be dropped, not block.
		progress := make(chan ProgressUpdate)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := engine.Generate(context.Background(), progress, "a quiet channel"); err != nil {
				t.Errorf("Generate() error = %v", err)
			}
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("generation blocked on progress channel")
		}
	})

	t.Run("Cancelled Context Stops Polling", func(t *testing.T) {
		mock := &mockService{
			JobStatusFunc: func(ctx context.Context, jobID string) (*services.StatusResponse, error) {
				return &services.StatusResponse{JobID: jobID, Status: models.StatusRendering}, nil
			},
		}
		engine, _ := newTestEngine(mock)
		engine.ConfigurePolling(10*time.Millisecond, 1000)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(30 * time.Millisecond)
			cancel()
		}()

		if _, err := engine.Generate(ctx, nil, "a cancelled run"); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func exportFixture() *fakeConvAPI {
	return &fakeConvAPI{
		conversations: []models.Conversation{
			{
				ConversationID: "conv-a",
				Title:          "Bouncing ball",
				Jobs: []models.Job{
					{JobID: "job-1", Prompt: "a bouncing ball", Status: models.StatusCompleted, VideoURL: "http://other/raw.mp4", Code: "class Ball: pass"},
				},
			},
			{
				ConversationID: "conv-b",
				Title:          "Broken scene",
				Jobs: []models.Job{
					{JobID: "job-2", Prompt: "a broken scene", Status: models.StatusFailed, ErrorMessage: "syntax error"},
				},
			},
		},
	}
}

func TestExportEngine_Run(t *testing.T) {
	t.Run("Markdown Export Of All Conversations", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewExportEngine(exportFixture(), nil)

		result, err := engine.Run(context.Background(), nil, nil, ExportOpts{Format: "markdown", OutputDir: dir})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.TotalConversations != 2 || result.SuccessfulExports != 2 || result.FailedExports != 0 {
			t.Errorf("unexpected result counts %+v", result)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "conv-a.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))

		content := tu.MustReadFile(t, filepath.Join(dir, "conv-a.md"))
		if !strings.Contains(content, "http://backend/video/stream/job-1") {
			t.Errorf("expected templated stream URL in transcript, got:\n%s", content)
		}
		if strings.Contains(content, "http://other/raw.mp4") {
			t.Error("server-reported video URL leaked into the transcript")
		}

		failed := tu.MustReadFile(t, filepath.Join(dir, "conv-b.md"))
		if !strings.Contains(failed, "Generation failed: syntax error") {
			t.Errorf("expected failure line in transcript, got:\n%s", failed)
		}
	})

	t.Run("JSON Is The Default Format", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewExportEngine(exportFixture(), nil)

		result, err := engine.Run(context.Background(), nil, []string{"conv-a"}, ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Errorf("expected 1 successful export, got %d", result.SuccessfulExports)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "conv-a.json"))
	})

	t.Run("CSV Export Writes Jobs And Metadata", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewExportEngine(exportFixture(), nil)

		if _, err := engine.Run(context.Background(), nil, []string{"conv-a"}, ExportOpts{Format: "csv", OutputDir: dir}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "conv-a_jobs.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "conv-a_metadata.json"))
	})

	t.Run("Fetch Failure Is Recorded Per Conversation", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewExportEngine(exportFixture(), nil)

		result, err := engine.Run(context.Background(), nil, []string{"conv-a", "missing"}, ExportOpts{Format: "txt", OutputDir: dir})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.SuccessfulExports != 1 || result.FailedExports != 1 {
			t.Errorf("unexpected result counts %+v", result)
		}
	})

	t.Run("Default Output Directory Uses Epoch", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		defer tu.MustChdir(t, wd)

		engine := NewExportEngine(exportFixture(), nil)
		result, err := engine.Run(context.Background(), nil, []string{"conv-a"}, ExportOpts{})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !strings.HasPrefix(result.OutputDirectory, "animx_export_") {
			t.Errorf("unexpected output directory %q", result.OutputDirectory)
		}
		if _, statErr := os.Stat(result.OutputDirectory); statErr != nil {
			t.Errorf("output directory missing: %v", statErr)
		}
	})
}
