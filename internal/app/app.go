// Package app wires the environment initializer together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/command"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/logging"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/prompt"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/settings"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/process"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// App owns the orchestrator and every collaborator it runs against.
type App struct {
	cfg        Config
	logger     *logging.SinkLogger
	settings   *settings.FileStore
	supervisor *process.Supervisor
	health     *health.Client
	orch       *setup.Orchestrator
}

type options struct {
	logger     ports.Logger
	prompter   ports.Prompter
	processes  ports.ProcessLister
	runner     ports.CommandRunner
	httpClient *http.Client
	lookPath   func(string) (string, error)
	setupOpts  []setup.Option
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger entries are written to after listeners see them.
func WithLogger(l ports.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPrompter replaces the terminal prompter.
func WithPrompter(p ports.Prompter) Option {
	return func(o *options) { o.prompter = p }
}

// WithProcessLister replaces the OS process lister.
func WithProcessLister(l ports.ProcessLister) Option {
	return func(o *options) { o.processes = l }
}

// WithCommandRunner replaces the runner for short-lived agent commands.
func WithCommandRunner(r ports.CommandRunner) Option {
	return func(o *options) { o.runner = r }
}

// WithHTTPClient sets the client used for health checks.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLookPath overrides agent executable resolution.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *options) { o.lookPath = fn }
}

// WithSetupOptions passes options through to the orchestrator.
func WithSetupOptions(opts ...setup.Option) Option {
	return func(o *options) { o.setupOpts = append(o.setupOpts, opts...) }
}

// New validates cfg and builds the application.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	level, _ := ports.ParseLevel(cfg.Log.Level)
	if o.logger == nil {
		o.logger = logging.NewConsoleLogger(
			logging.WithOutput(os.Stderr),
			logging.WithLevel(level),
			logging.WithJSONFormat(cfg.Log.JSON),
		)
	}
	logger := logging.NewSinkLogger(o.logger, nil)
	logger.SetLevel(level)

	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	if o.runner == nil {
		o.runner = command.NewRealRunner()
	}
	if o.processes == nil {
		o.processes = command.NewProcessLister(o.runner)
	}
	if o.prompter == nil {
		o.prompter = prompt.NewTerminal(os.Stdin, os.Stderr)
	}

	supOpts := []process.SupervisorOption{
		process.WithDefaultOptions(process.Options{KillGrace: cfg.Agent.KillGrace}),
	}
	if o.lookPath != nil {
		supOpts = append(supOpts, process.WithLookPath(o.lookPath))
	}
	sup := process.NewSupervisor(o.runner, logger, supOpts...)

	healthOpts := []health.Option{health.WithLogger(logger)}
	if o.httpClient != nil {
		healthOpts = append(healthOpts, health.WithHTTPClient(o.httpClient))
	}
	hc, err := health.NewClient(cfg.BaseURL(), healthOpts...)
	if err != nil {
		return nil, fmt.Errorf("health client: %w", err)
	}

	env := setup.Env{
		Settings:   overlay(store, cfg),
		Supervisor: sup,
		Health:     hc,
		Prompter:   o.prompter,
		Processes:  o.processes,
		Agent: setup.AgentConfig{
			Path:                  cfg.Agent.Path,
			Address:               cfg.Agent.Address,
			DataDir:               cfg.Agent.DataDir,
			DefaultWorkDir:        cfg.Agent.WorkDir,
			HealthPath:            cfg.Agent.HealthPath,
			ReadinessAttempts:     cfg.Agent.ReadinessAttempts,
			ReadinessInterval:     cfg.Agent.ReadinessInterval,
			PrerequisiteProcesses: cfg.Agent.PrerequisiteProcesses,
		},
		Logger: logger,
	}
	orch, err := setup.NewOrchestrator(env, o.setupOpts...)
	if err != nil {
		return nil, err
	}
	logger.SetSink(func(e logging.Entry) {
		orch.PublishLog(setup.LogEntry{
			Time:    e.Time,
			Level:   e.Level.String(),
			Message: e.Message,
			Fields:  e.FieldMap(),
		})
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		settings:   store,
		supervisor: sup,
		health:     hc,
		orch:       orch,
	}, nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() Config { return a.cfg }

// Orchestrator returns the initialization orchestrator.
func (a *App) Orchestrator() *setup.Orchestrator { return a.orch }

// Logger returns the application logger.
func (a *App) Logger() ports.Logger { return a.logger }

// Settings returns the persisted settings store.
func (a *App) Settings() *settings.FileStore { return a.settings }

// Close stops the agent server and releases the orchestrator.
func (a *App) Close(ctx context.Context) error {
	err := a.orch.Close(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
