package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/enrichr/internal/services"
	"github.com/desertthunder/enrichr/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	catalog    services.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	sleep      shared.SleepFunc
	envFiles   []string
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config and Catalog are normally built per command from the --config file; setting them skips that step.
type RunnerOpts struct {
	Config     *shared.Config
	Catalog    services.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Sleep      shared.SleepFunc
	EnvFiles   []string // dotenv files read for credentials, defaults to .env
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		sleep:      opts.Sleep,
		envFiles:   opts.EnvFiles,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, summaryCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to keep log lines out of the progress view.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig resolves the configuration for a command: preset config, else the --config file, else defaults.
//
// Credentials from the environment and .env are applied, then flag overrides, then validation.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	var cfg shared.Config

	switch path := cmd.String("config"); {
	case r.config != nil:
		cfg = *r.config
	case path != "" && fileExists(path):
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
		r.logger.Debug("loaded config", "path", path)
	default:
		cfg = *shared.DefaultConfig()
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	cfg.ApplyEnv(r.envFiles...)
	if cfg.Log.Level != "" {
		shared.SetLogLevel(r.logger, cfg.Log.Level)
	}

	if cmd.IsSet("input") {
		cfg.Enrich.Input = cmd.String("input")
	}
	if cmd.IsSet("output") {
		cfg.Enrich.Output = cmd.String("output")
	}
	if cmd.IsSet("threshold") {
		cfg.Enrich.PopularityThreshold = cmd.Int("threshold")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// catalogFor returns the preset catalog or builds the Spotify client from cfg.
func (r *Runner) catalogFor(cfg *shared.Config, logger *log.Logger) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	if !cfg.HasCredentials() {
		return nil, fmt.Errorf("%w: set spotify.client_id and spotify.client_secret, or %s and %s",
			shared.ErrMissingCredentials, shared.EnvClientID, shared.EnvClientSecret)
	}
	return services.NewSpotifyServiceFromConfig(cfg.Spotify, r.httpClient, logger, r.sleep)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	indent := 0
	if pretty {
		indent = 2
	}

	output, err := shared.MarshalJSON(data, indent)
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

func (r *Runner) writePlainHeader(title string) {
	rule := strings.Repeat("═", 39)
	r.writePlain("%s\n%v\n%s\n", rule, title, rule)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
