package app

import (
	"context"
	"strings"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// Status summarizes saved settings and the agent's live health.
type Status struct {
	SettingsPath  string
	Key           string
	KeySaved      bool
	WorkDir       string
	DataDir       string
	Address       string
	Healthy       bool
	ServerManaged bool
	// Server describes the agent server this process spawned, if it is alive.
	Server *ServerInfo
}

// ServerInfo identifies a managed agent server process.
type ServerInfo struct {
	PID       int
	Command   string
	StartedAt time.Time
}

// Uptime is how long the server has been running at now.
func (s ServerInfo) Uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt).Truncate(time.Second)
}

// Initialized reports whether a later launch can take the quick-start path.
func (s Status) Initialized() bool {
	return s.KeySaved && s.WorkDir != ""
}

// Status reads the saved settings and probes the agent service.
// The key is masked.
func (a *App) Status(ctx context.Context) Status {
	key, keySaved := a.settings.Get(ports.SettingSecretKey)
	workDir, _ := a.settings.Get(ports.SettingWorkDir)
	dataDir, ok := a.settings.Get(ports.SettingDataDir)
	if !ok {
		dataDir = a.cfg.Agent.DataDir
	}

	st := Status{
		SettingsPath:  a.settings.Path(),
		Key:           MaskSecret(key),
		KeySaved:      keySaved,
		WorkDir:       workDir,
		DataDir:       dataDir,
		Address:       a.cfg.Agent.Address,
		Healthy:       a.health.CheckHealth(ctx, a.cfg.Agent.HealthPath, health.DefaultHealthTimeout),
		ServerManaged: a.supervisor.Running(),
	}
	if h := a.supervisor.Current(); h != nil {
		st.Server = &ServerInfo{
			PID:       h.PID(),
			Command:   strings.Join(append([]string{h.Path()}, h.Args()...), " "),
			StartedAt: h.StartedAt(),
		}
	}
	return st
}

// MaskSecret keeps the first and last four characters of long secrets.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
	}
}
