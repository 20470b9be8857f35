package mocks

import (
	"context"
	"sync"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// Supervisor is a test double for the agent process supervisor.
// Short-lived commands resolve through the embedded CommandRunner.
type Supervisor struct {
	*CommandRunner

	mu        sync.Mutex
	running   bool
	launchErr error
	launches  []ports.CommandCall
	shutdowns int
	hook      func(ctx context.Context, call ports.CommandCall)
}

// NewSupervisor creates a Supervisor with no server running.
func NewSupervisor() *Supervisor {
	return &Supervisor{CommandRunner: NewCommandRunner()}
}

// SetRunning sets whether a long-lived server is reported as alive.
func (s *Supervisor) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// FailLaunch makes Launch return err.
func (s *Supervisor) FailLaunch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchErr = err
}

// OnLaunch installs a hook invoked on every Launch before it resolves.
func (s *Supervisor) OnLaunch(hook func(ctx context.Context, call ports.CommandCall)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Launch records the call and marks the server running unless a failure is configured.
func (s *Supervisor) Launch(ctx context.Context, path string, args ...string) error {
	call := ports.CommandCall{Command: path, Args: append([]string(nil), args...)}

	s.mu.Lock()
	s.launches = append(s.launches, call)
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launchErr != nil {
		return s.launchErr
	}
	s.running = true
	return nil
}

// Running reports the configured liveness.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Shutdown marks the server stopped.
func (s *Supervisor) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdowns++
	s.running = false
	return nil
}

// Launches returns every recorded Launch call.
func (s *Supervisor) Launches() []ports.CommandCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.CommandCall, len(s.launches))
	copy(out, s.launches)
	return out
}

// Shutdowns returns how many times Shutdown was called.
func (s *Supervisor) Shutdowns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdowns
}
