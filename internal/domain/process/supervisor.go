// Package process supervises the external agent executable: one long-lived
// server process at a time, plus run-to-completion command invocations.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

var (
	// ErrSpawn is returned when the executable is missing or cannot be started.
	ErrSpawn = errors.New("failed to spawn process")
	// ErrAlreadyRunning is returned when a long-lived process is already supervised.
	ErrAlreadyRunning = errors.New("a supervised process is already running")
)

// DefaultKillGrace is how long Stop waits after SIGTERM before sending SIGKILL.
const DefaultKillGrace = 5 * time.Second

const maxLineSize = 1 << 20

// Options configures a long-lived process.
type Options struct {
	Dir       string
	Env       []string
	KillGrace time.Duration
}

// Handle refers to one spawned long-lived process.
type Handle struct {
	path      string
	args      []string
	cmd       *exec.Cmd
	startedAt time.Time
	killGrace time.Duration

	done     chan struct{}
	exitCode int
	waitErr  error
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// Path returns the executable path.
func (h *Handle) Path() string {
	return h.path
}

// Args returns a copy of the arguments the process was started with.
func (h *Handle) Args() []string {
	return append([]string(nil), h.args...)
}

// StartedAt returns the spawn time.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// Done is closed once the process has exited and its output is drained.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the process has exited.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal.
func (h *Handle) ExitCode() int {
	if !h.Exited() {
		return -1
	}
	return h.exitCode
}

// Supervisor spawns and tracks agent processes.
type Supervisor struct {
	mu       sync.Mutex
	current  *Handle
	runner   ports.CommandRunner
	logger   ports.Logger
	lookPath func(string) (string, error)
	defaults Options
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithLookPath overrides executable resolution.
func WithLookPath(fn func(string) (string, error)) SupervisorOption {
	return func(s *Supervisor) {
		s.lookPath = fn
	}
}

// WithDefaultOptions sets the options Launch starts processes with.
func WithDefaultOptions(opts Options) SupervisorOption {
	return func(s *Supervisor) {
		s.defaults = opts
	}
}

// NewSupervisor creates a Supervisor. runner executes short-lived commands.
func NewSupervisor(runner ports.CommandRunner, logger ports.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		runner:   runner,
		logger:   logger.With(ports.F("component", "supervisor")),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns a long-lived process. Only one may be alive at a time.
func (s *Supervisor) Start(ctx context.Context, path string, args []string, opts Options) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.Exited() {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, s.current.PID())
	}

	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(resolved, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	setProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
	}

	grace := opts.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	h := &Handle{
		path:      path,
		args:      append([]string(nil), args...),
		cmd:       cmd,
		startedAt: time.Now(),
		killGrace: grace,
		done:      make(chan struct{}),
	}
	s.current = h

	log := s.logger.With(ports.F("pid", h.PID()))
	log.Info(ctx, "process started", ports.F("path", path), ports.F("args", args))

	var streams sync.WaitGroup
	streams.Add(2)
	go func() {
		defer streams.Done()
		forwardLines(stdout, func(line string) {
			log.Info(context.Background(), line, ports.F("stream", "stdout"))
		})
	}()
	go func() {
		defer streams.Done()
		forwardLines(stderr, func(line string) {
			log.Warn(context.Background(), line, ports.F("stream", "stderr"))
		})
	}()

	go s.reap(h, &streams, log)

	return h, nil
}

// reap waits for the process, records its exit status and releases the handle.
func (s *Supervisor) reap(h *Handle, streams *sync.WaitGroup, log ports.Logger) {
	streams.Wait()
	err := h.cmd.Wait()

	h.waitErr = err
	h.exitCode = h.cmd.ProcessState.ExitCode()
	close(h.done)

	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	s.mu.Unlock()

	log.Info(context.Background(), "process exited", ports.F("exit_code", h.exitCode), ports.Err(err))
}

// Wait blocks until the process exits or ctx is done.
func (s *Supervisor) Wait(ctx context.Context, h *Handle) (int, error) {
	if h == nil {
		return -1, nil
	}
	select {
	case <-h.done:
		return h.exitCode, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Kill sends sig to the process group of h. Killing a nil or exited handle is a no-op.
func (s *Supervisor) Kill(h *Handle, sig os.Signal) error {
	if h == nil || h.Exited() {
		return nil
	}
	if err := signalProcess(h.cmd, sig); err != nil {
		if h.Exited() {
			return nil
		}
		return fmt.Errorf("signal pid %d: %w", h.PID(), err)
	}
	return nil
}

// Stop terminates h gracefully, escalating to a hard kill after its grace period.
func (s *Supervisor) Stop(ctx context.Context, h *Handle) error {
	if h == nil || h.Exited() {
		return nil
	}

	if err := s.Kill(h, terminateSignal); err != nil {
		return err
	}

	timer := time.NewTimer(h.killGrace)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		s.logger.Warn(ctx, "process ignored terminate signal, killing", ports.F("pid", h.PID()))
	case <-ctx.Done():
	}

	if err := s.Kill(h, os.Kill); err != nil {
		return err
	}
	<-h.done
	return nil
}

// Current returns the live long-lived handle, or nil.
func (s *Supervisor) Current() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.Exited() {
		return nil
	}
	return s.current
}

// Running reports whether a long-lived process is alive.
func (s *Supervisor) Running() bool {
	return s.Current() != nil
}

// Launch starts a long-lived process with the supervisor's default options.
func (s *Supervisor) Launch(ctx context.Context, path string, args ...string) error {
	_, err := s.Start(ctx, path, args, s.defaults)
	return err
}

// Shutdown stops the long-lived process, if any.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	return s.Stop(ctx, s.Current())
}

// Run executes a short-lived command to completion and logs its output.
// A non-zero exit is reported in the result. Cancelling ctx kills the command.
func (s *Supervisor) Run(ctx context.Context, path string, args ...string) (ports.CommandResult, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return ports.CommandResult{}, err
	}

	log := s.logger.With(ports.F("command", path))
	started := time.Now()

	res, err := s.runner.Run(ctx, resolved, args...)
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		return res, fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
	}

	forwardText(res.Stdout, func(line string) {
		log.Info(ctx, line, ports.F("stream", "stdout"))
	})
	forwardText(res.Stderr, func(line string) {
		log.Warn(ctx, line, ports.F("stream", "stderr"))
	})
	log.Debug(ctx, "command finished",
		ports.F("exit_code", res.ExitCode),
		ports.F("duration", time.Since(started).Round(time.Millisecond)))

	return res, nil
}

func (s *Supervisor) resolve(path string) (string, error) {
	resolved, err := s.lookPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrSpawn, path, err)
	}
	return resolved, nil
}

func forwardLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			emit(line)
		}
	}
	// Drain whatever the scanner refused so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func forwardText(text string, emit func(string)) {
	if text == "" {
		return
	}
	forwardLines(strings.NewReader(text), emit)
}
