package app

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const appDirName = "echosoul"

// Config is the application configuration.
type Config struct {
	Agent            AgentConfig `yaml:"agent"`
	SettingsPath     string      `yaml:"settings"`
	SkipPrerequisite bool        `yaml:"skip_prerequisite_check"`
	Log              LogConfig   `yaml:"log"`
}

// AgentConfig describes the external agent binary and its service.
type AgentConfig struct {
	Path                  string        `yaml:"path"`
	Address               string        `yaml:"address"`
	DataDir               string        `yaml:"data_dir"`
	WorkDir               string        `yaml:"work_dir"`
	HealthPath            string        `yaml:"health_path"`
	ReadinessAttempts     int           `yaml:"readiness_attempts"`
	ReadinessInterval     time.Duration `yaml:"readiness_interval"`
	KillGrace             time.Duration `yaml:"kill_grace"`
	PrerequisiteProcesses []string      `yaml:"prerequisite_processes"`
}

// LogConfig controls console logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Path:                  "chatlog",
			Address:               setup.DefaultAddress,
			WorkDir:               setup.DefaultWorkDir(),
			HealthPath:            setup.DefaultHealthPath,
			ReadinessAttempts:     health.DefaultReadinessAttempts,
			ReadinessInterval:     health.DefaultReadinessInterval,
			KillGrace:             5 * time.Second,
			PrerequisiteProcesses: append([]string(nil), setup.DefaultPrerequisiteProcesses...),
		},
		SettingsPath: filepath.Join(ConfigDir(), "settings.yaml"),
		Log:          LogConfig{Level: "info"},
	}
}

// ConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/echosoul when set.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(".", "."+appDirName)
}

// DefaultConfigPath returns the config file read when none is given.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadConfig reads path over DefaultConfig. An empty path reads the default
// location, which may be missing; an explicit path must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that cfg can be used to build an App.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Agent.Path) == "" {
		problems = append(problems, "agent.path is required")
	}
	if err := validateAddress(c.Agent.Address); err != nil {
		problems = append(problems, fmt.Sprintf("agent.address: %v", err))
	}
	if !strings.HasPrefix(c.Agent.HealthPath, "/") {
		problems = append(problems, "agent.health_path must start with /")
	}
	if c.Agent.ReadinessAttempts <= 0 {
		problems = append(problems, "agent.readiness_attempts must be positive")
	}
	if c.Agent.ReadinessInterval <= 0 {
		problems = append(problems, "agent.readiness_interval must be positive")
	}
	if c.Agent.KillGrace < 0 {
		problems = append(problems, "agent.kill_grace must not be negative")
	}
	if strings.TrimSpace(c.SettingsPath) == "" {
		problems = append(problems, "settings path is required")
	}
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// BaseURL is the agent service root derived from the bind address.
func (c Config) BaseURL() string {
	return "http://" + c.Agent.Address
}

func validateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return errors.New("host is required")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
