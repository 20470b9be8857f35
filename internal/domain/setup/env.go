package setup

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// Agent subcommands and flags.
const (
	agentCmdKey     = "key"
	agentCmdDecrypt = "decrypt"
	agentCmdServer  = "server"
)

// Defaults for the agent service.
const (
	DefaultAddress    = "127.0.0.1:5030"
	DefaultHealthPath = "/api/v1/contact"
)

// DefaultPrerequisiteProcesses are the host application's process names.
var DefaultPrerequisiteProcesses = []string{"WeChat", "Weixin"}

// DefaultWorkDir returns the suggested storage directory,
// ~/Documents/EchoSoul/data, or a relative path if the home directory is unknown.
func DefaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("EchoSoul", "data")
	}
	return filepath.Join(home, "Documents", "EchoSoul", "data")
}

// DefaultDataDir returns the suggested source data directory: the host
// application's usual data location on this platform.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "Documents", "WeChat Files")
	case "darwin":
		return filepath.Join(home, "Library", "Containers", "com.tencent.xinWeChat",
			"Data", "Library", "Application Support", "com.tencent.xinWeChat")
	default:
		return filepath.Join(home, "WeChat Files")
	}
}

// Supervisor runs agent commands and owns the long-lived agent server.
type Supervisor interface {
	// Run executes a short-lived command to completion.
	Run(ctx context.Context, path string, args ...string) (ports.CommandResult, error)
	// Launch spawns the long-lived server process.
	Launch(ctx context.Context, path string, args ...string) error
	// Running reports whether the long-lived process is alive.
	Running() bool
	// Shutdown stops the long-lived process, if any.
	Shutdown(ctx context.Context) error
}

// HealthChecker probes the agent's HTTP endpoint.
type HealthChecker interface {
	CheckHealth(ctx context.Context, path string, timeout time.Duration) bool
	PollUntilReady(ctx context.Context, path string, maxAttempts int, interval time.Duration) error
}

// AgentConfig describes the external agent and the prerequisite application.
type AgentConfig struct {
	// Path is the agent executable.
	Path string
	// Address is the host:port the server binds to.
	Address string
	// DataDir is the encrypted source directory, used when none is persisted.
	DataDir string
	// DefaultDataDir is suggested when the source directory must be picked.
	DefaultDataDir string
	// DefaultWorkDir is suggested to the user when picking a storage directory.
	DefaultWorkDir string
	// HealthPath is a lightweight resource whose 2xx response means "healthy".
	HealthPath string
	// ReadinessAttempts and ReadinessInterval bound server start-up polling.
	ReadinessAttempts int
	ReadinessInterval time.Duration
	// PrerequisiteProcesses are process names of the host application.
	PrerequisiteProcesses []string
}

func (c AgentConfig) withDefaults() AgentConfig {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.HealthPath == "" {
		c.HealthPath = DefaultHealthPath
	}
	if c.ReadinessAttempts <= 0 {
		c.ReadinessAttempts = health.DefaultReadinessAttempts
	}
	if c.ReadinessInterval <= 0 {
		c.ReadinessInterval = health.DefaultReadinessInterval
	}
	if c.DefaultDataDir == "" {
		c.DefaultDataDir = DefaultDataDir()
	}
	if c.DefaultWorkDir == "" {
		c.DefaultWorkDir = DefaultWorkDir()
	}
	if len(c.PrerequisiteProcesses) == 0 {
		c.PrerequisiteProcesses = DefaultPrerequisiteProcesses
	}
	return c
}

// Env is everything an executor may use. Executors share no other state.
type Env struct {
	Settings   ports.SettingsStore
	Supervisor Supervisor
	Health     HealthChecker
	Prompter   ports.Prompter
	Processes  ports.ProcessLister
	Agent      AgentConfig
	Logger     ports.Logger
}

// Reporter lets a running executor publish hints about its step.
// It never changes the step's final status; only the returned Outcome does.
type Reporter interface {
	// AwaitInput marks the step as waiting for the user.
	AwaitInput(action string)
	// Resume marks the step as running again after user input.
	Resume()
	// SetUserAction shows a hint next to the running step.
	SetUserAction(action string)
	// SetProgress updates the step's own progress, 0..100.
	SetProgress(percent int)
}

type nopReporter struct{}

func (nopReporter) AwaitInput(string)    {}
func (nopReporter) Resume()              {}
func (nopReporter) SetUserAction(string) {}
func (nopReporter) SetProgress(int)      {}
