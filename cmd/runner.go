package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/selection"
	"github.com/h4nsec/SpotiPlay/internal/services"
	"github.com/h4nsec/SpotiPlay/internal/setlist"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	fetcher    *setlist.Fetcher
	codec      selection.Codec
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Fetcher    *setlist.Fetcher
	Codec      selection.Codec
	Logger     *log.Logger
	Output     io.Writer
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
	if opts.Fetcher == nil {
		opts.Fetcher = setlist.NewFetcher(setlist.FetcherOpts{
			UserAgent: opts.Config.Setlist.UserAgent,
			Timeout:   opts.Config.Setlist.TimeoutDuration(),
			Logger:    opts.Logger,
		})
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		fetcher:    opts.Fetcher,
		codec:      opts.Codec,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.buildEngine()
	return r
}

// buildEngine wires the engine over the current catalog, fetcher and logger.
func (r *Runner) buildEngine() {
	if r.catalog == nil {
		r.engine = nil
		return
	}
	r.engine = r.engineFor(r.catalog)
}

func (r *Runner) engineFor(catalog tasks.Catalog) *tasks.Engine {
	return tasks.NewEngine(tasks.EngineOpts{
		Loader:        r.fetcher,
		Catalog:       catalog,
		MaxCandidates: r.config.Resolver.MaxCandidates,
		Workers:       r.config.Resolver.Workers,
		Public:        r.config.Playlist.Public,
		Logger:        r.logger,
	})
}

// SetLogger replaces the logger of the runner and everything it built.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	if svc, ok := r.catalog.(*services.SpotifyService); ok {
		svc.SetLogger(l)
	}
	r.fetcher = setlist.NewFetcher(setlist.FetcherOpts{
		UserAgent: r.config.Setlist.UserAgent,
		Timeout:   r.config.Setlist.TimeoutDuration(),
		Logger:    l,
	})
	r.buildEngine()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, setlistCommand, historyCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireEngine fails when no catalog was configured.
func (r *Runner) requireEngine() error {
	if r.engine == nil {
		return fmt.Errorf("%w: Spotify service not initialized, set client_id and client_secret in %s", shared.ErrServiceUnavailable, r.configPathOrDefault())
	}
	return nil
}

func (r *Runner) configPathOrDefault() string {
	if r.configPath == "" {
		return defaultConfigPath
	}
	return r.configPath
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
