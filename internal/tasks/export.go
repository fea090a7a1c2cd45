package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/animx/internal/formatter"
	"github.com/desertthunder/animx/internal/models"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"golang.org/x/time/rate"
)

// ExportAPI is the slice of the backend client the export engine needs.
type ExportAPI interface {
	ListConversations(ctx context.Context, limit, offset int) ([]models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	VideoURL(jobID string) string
}

// ExportOpts contains configuration for bulk transcript exports.
type ExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: animx_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5)
	RateLimit  float64 // Requests per second (default: 5)
}

// ExportResult summarizes a bulk transcript export.
type ExportResult struct {
	TotalConversations int                        `json:"totalConversations"`
	SuccessfulExports  int                        `json:"successfulExports"`
	FailedExports      int                        `json:"failedExports"`
	OutputDirectory    string                     `json:"outputDirectory"`
	ManifestPath       string                     `json:"manifestPath,omitempty"`
	Results            []ConversationExportResult `json:"results"`
}

// ConversationExportResult is the outcome of exporting one conversation.
type ConversationExportResult struct {
	ConversationID string   `json:"conversationId"`
	Title          string   `json:"title"`
	Success        bool     `json:"success"`
	Files          []string `json:"files"`
	Error          string   `json:"error,omitempty"`
}

// conversationExportJob carries one fetched conversation to a worker.
type conversationExportJob struct {
	Conversation *models.Conversation
	Messages     []models.Message
}

// ExportEngine writes conversation transcripts to disk in bulk, fetching
// conversation detail through a rate-limited worker pool.
type ExportEngine struct {
	api    ExportAPI
	logger *log.Logger
}

// NewExportEngine creates an export engine bound to a backend client.
func NewExportEngine(api ExportAPI, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{api: api, logger: logger}
}

// Run exports the named conversations concurrently with rate limiting and
// progress tracking. An empty id list exports every conversation the backend
// returns. Partial failures are recorded per conversation; a manifest file
// summarizing the run is written to the output directory.
func (e *ExportEngine) Run(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts ExportOpts) (*ExportResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("animx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if len(ids) == 0 {
		all, err := e.listAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}
		for _, conv := range all {
			ids = append(ids, conv.ConversationID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		TotalConversations: len(ids),
		OutputDirectory:    opts.OutputDir,
		Results:            make([]ConversationExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan conversationExportJob, len(ids))
	results := make(chan ConversationExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		for i, conversationID := range ids {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				close(jobs)
				return
			}

			conv, err := e.api.GetConversation(ctx, conversationID)
			if err != nil {
				results <- ConversationExportResult{
					ConversationID: conversationID,
					Title:          fmt.Sprintf("Unknown (%s)", conversationID),
					Error:          fmt.Sprintf("failed to fetch conversation: %v", err),
				}
				continue
			}

			jobs <- conversationExportJob{
				Conversation: conv,
				Messages:     session.ProjectTranscript(conv.Jobs, e.api.VideoURL),
			}

			sendProgress(prog, exportingUpdate(i+1, len(ids), conv.Title))
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			path := ""
			if len(res.Files) > 0 {
				path = res.Files[0]
			}
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, path))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// listAll pages through the conversation list until the backend runs dry.
func (e *ExportEngine) listAll(ctx context.Context) ([]models.Conversation, error) {
	const pageSize = 100

	var all []models.Conversation
	for offset := 0; ; offset += pageSize {
		page, err := e.api.ListConversations(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// exportWorker is a worker goroutine that writes conversations from the jobs channel.
func (e *ExportEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan conversationExportJob,
	results chan<- ConversationExportResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleConversation(job, opts)
	}
}

// exportSingleConversation writes a single conversation in the requested format.
func (e *ExportEngine) exportSingleConversation(j conversationExportJob, opts ExportOpts) ConversationExportResult {
	conv := j.Conversation
	result := ConversationExportResult{
		ConversationID: conv.ConversationID,
		Title:          conv.Title,
		Files:          []string{},
	}

	switch opts.Format {
	case "csv":
		baseFilepath := filepath.Join(opts.OutputDir, conv.ConversationID)
		csvRes, err := formatter.WriteCSVExport(conv, baseFilepath)
		if err != nil {
			result.Error = fmt.Sprintf("CSV export failed: %v", err)
			return result
		}
		result.Files = []string{csvRes.JobsFile, csvRes.MetadataFile}
		result.Success = true

	case "markdown":
		mdPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.md", conv.ConversationID))
		path, err := formatter.WriteMarkdownExport(conv, j.Messages, mdPath)
		if err != nil {
			result.Error = fmt.Sprintf("markdown export failed: %v", err)
			return result
		}
		result.Files = []string{path}
		result.Success = true

	case "txt":
		txtPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.txt", conv.ConversationID))
		path, err := formatter.WriteTextExport(conv, j.Messages, txtPath)
		if err != nil {
			result.Error = fmt.Sprintf("text export failed: %v", err)
			return result
		}
		result.Files = []string{path}
		result.Success = true

	case "json":
		fallthrough
	default:
		jsonPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", conv.ConversationID))
		data, err := shared.MarshalJSON(conv, true)
		if err != nil {
			result.Error = fmt.Sprintf("JSON marshal failed: %v", err)
			return result
		}
		if err := os.WriteFile(jsonPath, data, 0644); err != nil {
			result.Error = fmt.Sprintf("JSON write failed: %v", err)
			return result
		}
		result.Files = []string{jsonPath}
		result.Success = true
	}
	return result
}
