package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/animx/internal/services"
	"github.com/desertthunder/animx/internal/session"
	"github.com/desertthunder/animx/internal/shared"
	"github.com/desertthunder/animx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        *services.AnimationService
	rest       *services.APIService
	sess       *session.Session
	engine     *tasks.GenerationEngine
	exporter   *tasks.ExportEngine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	credsPath  string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	API        *services.AnimationService
	REST       *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	CredsPath  string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	sess := session.NewSession(opts.API, opts.Logger)
	engine := tasks.NewGenerationEngine(opts.API, sess, opts.Logger)
	engine.ConfigurePolling(pollInterval(opts.Config), opts.Config.API.MaxPollAttempts)

	return &Runner{
		config:     opts.Config,
		api:        opts.API,
		rest:       opts.REST,
		sess:       sess,
		engine:     engine,
		exporter:   tasks.NewExportEngine(opts.API, opts.Logger),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		credsPath:  opts.CredsPath,
	}
}

// pollInterval converts the configured poll cadence to a duration. Zero keeps
// the engine default.
func pollInterval(cfg *shared.Config) time.Duration {
	return time.Duration(cfg.API.PollIntervalSeconds) * time.Second
}

// SetLogger swaps the runner's logger and propagates it to the engines.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.engine = tasks.NewGenerationEngine(r.api, r.sess, logger)
	r.engine.ConfigurePolling(pollInterval(r.config), r.config.API.MaxPollAttempts)
	r.exporter = tasks.NewExportEngine(r.api, logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, generateCommand, conversationsCommand, jobsCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
