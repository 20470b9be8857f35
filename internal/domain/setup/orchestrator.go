package setup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

const restoredDescription = "restored from saved settings"

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the executor for step.
func WithExecutor(step Step, exec Executor) Option {
	return func(o *Orchestrator) {
		if step.Index() >= 0 && exec != nil {
			o.executors[step] = exec
		}
	}
}

// WithRunIDs sets the generator for run identifiers.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newRunID = fn
		}
	}
}

// WithQuickStart enables or disables the saved-settings shortcut. Enabled by default.
func WithQuickStart(enabled bool) Option {
	return func(o *Orchestrator) {
		o.quickStart = enabled
	}
}

// Orchestrator drives the initialization sequence. It owns the step
// records; executors only return outcomes. All methods are safe for
// concurrent use, but only one run executes at a time.
type Orchestrator struct {
	env        Env
	executors  map[Step]Executor
	newRunID   func() string
	quickStart bool
	logger     ports.Logger

	mu         sync.Mutex
	state      State
	lifecycles map[Step]*lifecycle
	notified   bool
	cancel     context.CancelFunc
	closed     bool

	running atomic.Bool
	events  *broadcaster
}

// NewOrchestrator builds an orchestrator over env.
func NewOrchestrator(env Env, opts ...Option) (*Orchestrator, error) {
	switch {
	case env.Settings == nil:
		return nil, errors.New("setup: settings store is required")
	case env.Supervisor == nil:
		return nil, errors.New("setup: supervisor is required")
	case env.Health == nil:
		return nil, errors.New("setup: health checker is required")
	case env.Prompter == nil:
		return nil, errors.New("setup: prompter is required")
	case env.Processes == nil:
		return nil, errors.New("setup: process lister is required")
	}
	if env.Logger == nil {
		env.Logger = ports.Discard
	}
	env.Agent = env.Agent.withDefaults()

	o := &Orchestrator{
		env:        env,
		executors:  Executors(),
		newRunID:   uuid.NewString,
		quickStart: true,
		logger:     env.Logger.With(ports.F("component", "setup")),
		state:      newState(),
		lifecycles: make(map[Step]*lifecycle, len(stepOrder)),
		events:     newBroadcaster(),
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, step := range stepOrder {
		lc, err := newLifecycle(step)
		if err != nil {
			return nil, err
		}
		o.lifecycles[step] = lc
	}
	return o, nil
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Running reports whether a run is in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Subscribe registers l and returns a function that removes it.
func (o *Orchestrator) Subscribe(l Listener) func() {
	return o.events.subscribe(l)
}

// PublishLog relays a log entry to listeners.
func (o *Orchestrator) PublishLog(entry LogEntry) {
	o.events.log(entry)
}

// Start runs the sequence from the first unfinished step and blocks until it
// completes or halts. A call made while a run is in flight is ignored.
// A completed run is re-checked against the live service and resumes from
// the server step when the service is gone. When the key and storage directory are already saved, the server step is
// tried first and the earlier steps are skipped if it succeeds.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn(ctx, "initialization already running, ignoring start")
		return nil
	}
	defer o.running.Store(false)

	runCtx, log, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer o.end()

	if o.State().IsCompleted {
		if o.env.Health.CheckHealth(runCtx, o.env.Agent.HealthPath, health.DefaultHealthTimeout) {
			log.Info(runCtx, "initialization already completed")
			return nil
		}
		log.Warn(runCtx, "service is no longer reachable, restarting it")
		o.resetFrom(StepStartServer)
		return o.run(runCtx, log, StepStartServer)
	}
	if o.quickStartEligible() {
		if o.tryQuickStart(runCtx, log) {
			return nil
		}
	}
	return o.run(runCtx, log, StepCheckPrerequisite)
}

// RetryCurrentStep re-runs the halted step and continues the sequence.
func (o *Orchestrator) RetryCurrentStep(ctx context.Context) error {
	step := o.State().CurrentStep
	if step == StepCompleted {
		return nil
	}
	return o.RetryFromStep(ctx, step)
}

// RetryFromStep resets step and every later step to pending, then runs the
// sequence from step. Earlier steps keep their status.
func (o *Orchestrator) RetryFromStep(ctx context.Context, step Step) error {
	if step.Index() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)

	runCtx, log, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer o.end()

	o.resetFrom(step)
	log.Info(runCtx, "retrying initialization", ports.F("from", step))
	return o.run(runCtx, log, step)
}

// ResetFromStep resets step and every later step to pending without running.
func (o *Orchestrator) ResetFromStep(step Step) error {
	if step.Index() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)

	o.resetFrom(step)
	return nil
}

// Reset clears the saved settings, stops the agent server and returns every
// step to pending.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.running.Store(false)

	if err := o.env.Settings.Clear(); err != nil {
		return fmt.Errorf("clear settings: %w", err)
	}
	if o.env.Supervisor.Running() {
		if err := o.env.Supervisor.Shutdown(ctx); err != nil {
			o.logger.Warn(ctx, "stop agent server", ports.Err(err))
		}
	}
	o.resetFrom(StepCheckPrerequisite)

	o.mu.Lock()
	o.state.RunID = ""
	o.mu.Unlock()

	o.logger.Info(ctx, "initialization reset")
	return nil
}

// Close cancels an in-flight run, stops the agent server and releases the
// step statecharts. It is safe to call more than once.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()

	err := o.env.Supervisor.Shutdown(ctx)

	// A cancelled run may still be unwinding and firing events.
	if !o.running.Load() {
		o.mu.Lock()
		for _, lc := range o.lifecycles {
			lc.stop()
		}
		o.mu.Unlock()
	}
	return err
}

func (o *Orchestrator) begin(ctx context.Context) (context.Context, ports.Logger, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, nil, ErrClosed
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state.RunID = o.newRunID()
	return runCtx, o.logger.With(ports.F("run_id", o.state.RunID)), nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) quickStartEligible() bool {
	if !o.quickStart {
		return false
	}
	if _, ok := o.env.Settings.Get(ports.SettingSecretKey); !ok {
		return false
	}
	if _, ok := o.env.Settings.Get(ports.SettingWorkDir); !ok {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.state.Steps {
		if rec.Status != StatusPending {
			return false
		}
	}
	return true
}

// tryQuickStart runs only the server step. On success the earlier steps are
// restored without running; on failure the server step is reset and false
// is returned so the full sequence can run.
func (o *Orchestrator) tryQuickStart(ctx context.Context, log ports.Logger) bool {
	log.Info(ctx, "saved settings found, trying quick start")

	// Hints are dropped so a failed attempt leaves overall progress untouched.
	out := o.execute(ctx, log, StepStartServer, nopReporter{})
	if !out.Success {
		log.Info(ctx, "quick start failed, running full sequence", ports.F("reason", out.Message))
		o.resetFrom(StepStartServer)
		o.update(func(st *State) {
			st.CurrentStep = StepCheckPrerequisite
		})
		return false
	}

	o.update(func(st *State) {
		for _, step := range stepOrder[:StepStartServer.Index()] {
			if !o.transition(log, step, eventRestore, StatusSuccess) {
				continue
			}
			rec := st.Steps[step]
			rec.Status = StatusSuccess
			rec.Progress = 100
			rec.Description = restoredDescription
			st.Steps[step] = rec
		}
	})
	o.succeed(ctx, log, StepStartServer, out)
	o.complete(ctx, log)
	return true
}

func (o *Orchestrator) run(ctx context.Context, log ports.Logger, from Step) error {
	for step := from; step != StepCompleted; step = step.Next() {
		if o.State().Steps[step].Status == StatusSuccess {
			continue
		}

		out := o.execute(ctx, log, step, &stepReporter{o: o, log: log, step: step})
		if !out.Success {
			return o.fail(ctx, log, step, out)
		}
		o.succeed(ctx, log, step, out)
	}
	o.complete(ctx, log)
	return nil
}

// execute moves step to in_progress, runs its executor and returns the
// outcome. The record is left in progress for succeed or fail.
func (o *Orchestrator) execute(ctx context.Context, log ports.Logger, step Step, r Reporter) Outcome {
	exec, ok := o.executors[step]
	if !ok {
		return Fail(KindUnknown, fmt.Sprintf("no executor for %s", step))
	}

	started := false
	o.update(func(st *State) {
		if o.lifecycles[step].Status() != StatusPending {
			o.transition(log, step, eventReset, StatusPending)
		}
		started = o.transition(log, step, eventStart, StatusInProgress)
		rec := pendingRecord(step)
		rec.Status = o.lifecycles[step].Status()
		st.Steps[step] = rec
		st.CurrentStep = step
	})
	if !started {
		return Fail(KindUnknown, fmt.Sprintf("%s could not be started", step))
	}

	stepLog := log.With(ports.F("step", step))
	stepLog.Info(ctx, "step started")

	env := o.env
	env.Logger = stepLog
	out := safeExecute(ctx, exec, &env, r)

	o.mu.Lock()
	if o.lifecycles[step].Status() == StatusWaitingUserInput {
		o.transition(log, step, eventResume, StatusInProgress)
	}
	o.mu.Unlock()
	return out
}

func (o *Orchestrator) succeed(ctx context.Context, log ports.Logger, step Step, out Outcome) {
	o.update(func(st *State) {
		if !o.transition(log, step, eventSucceed, StatusSuccess) {
			return
		}
		rec := st.Steps[step]
		rec.Status = StatusSuccess
		rec.Progress = 100
		rec.Error = ""
		rec.UserAction = ""
		if out.Message != "" {
			rec.Description = out.Message
		}
		st.Steps[step] = rec
		st.CurrentStep = step.Next()
	})
	log.Info(ctx, "step succeeded", ports.F("step", step), ports.F("message", out.Message))
}

func (o *Orchestrator) fail(ctx context.Context, log ports.Logger, step Step, out Outcome) error {
	o.update(func(st *State) {
		o.transition(log, step, eventFail, StatusError)
		rec := st.Steps[step]
		rec.Status = o.lifecycles[step].Status()
		rec.Progress = 0
		rec.Error = out.Message
		rec.UserAction = out.UserAction
		st.Steps[step] = rec
		st.CurrentStep = step
	})

	fields := []ports.Field{
		ports.F("step", step),
		ports.F("kind", out.Kind),
		ports.F("message", out.Message),
	}
	if out.Err != nil {
		fields = append(fields, ports.Err(out.Err))
	}
	log.Error(ctx, "step failed", fields...)

	stepErr := StepError{Step: step, Kind: out.Kind, Message: out.Message}
	o.events.failed(stepErr)
	return &stepErr
}

func (o *Orchestrator) complete(ctx context.Context, log ports.Logger) {
	notify := false
	o.update(func(st *State) {
		st.CurrentStep = StepCompleted
		st.IsCompleted = true
		st.CanExit = true
		if !o.notified {
			o.notified = true
			notify = true
		}
	})
	log.Info(ctx, "initialization completed")
	if notify {
		o.events.completed()
	}
}

func (o *Orchestrator) resetFrom(step Step) {
	o.update(func(st *State) {
		for _, s := range stepOrder[step.Index():] {
			o.transition(o.logger, s, eventReset, StatusPending)
			st.Steps[s] = pendingRecord(s)
		}
		st.CurrentStep = step
		st.IsCompleted = false
		st.CanExit = false
		o.notified = false
	})
}

// update applies fn under the lock, recomputes overall progress and
// publishes the new state.
func (o *Orchestrator) update(fn func(st *State)) {
	o.mu.Lock()
	fn(&o.state)
	o.state.OverallProgress = ComputeProgress(o.state.Steps)
	snapshot := o.state.Clone()
	o.mu.Unlock()

	o.events.stateChanged(snapshot)
}

// transition fires event on step's statechart. Illegal transitions are
// logged and leave the status unchanged. Callers hold o.mu.
func (o *Orchestrator) transition(log ports.Logger, step Step, event string, want StepStatus) bool {
	lc := o.lifecycles[step]
	from := lc.Status()
	if lc.fire(event, want) {
		return true
	}
	log.Warn(context.Background(), "illegal step transition ignored",
		ports.F("step", step),
		ports.F("event", event),
		ports.F("from", from),
	)
	return false
}

// stepReporter applies executor hints to the running step's record.
type stepReporter struct {
	o    *Orchestrator
	log  ports.Logger
	step Step
}

func (r *stepReporter) AwaitInput(action string) {
	r.o.update(func(st *State) {
		if !r.o.transition(r.log, r.step, eventAwait, StatusWaitingUserInput) {
			return
		}
		rec := st.Steps[r.step]
		rec.Status = StatusWaitingUserInput
		rec.UserAction = action
		st.Steps[r.step] = rec
	})
}

func (r *stepReporter) Resume() {
	r.o.update(func(st *State) {
		if !r.o.transition(r.log, r.step, eventResume, StatusInProgress) {
			return
		}
		rec := st.Steps[r.step]
		rec.Status = StatusInProgress
		rec.UserAction = ""
		st.Steps[r.step] = rec
	})
}

func (r *stepReporter) SetUserAction(action string) {
	r.o.update(func(st *State) {
		rec := st.Steps[r.step]
		rec.UserAction = action
		st.Steps[r.step] = rec
	})
}

func (r *stepReporter) SetProgress(percent int) {
	r.o.update(func(st *State) {
		rec := st.Steps[r.step]
		if rec.Status != StatusInProgress {
			return
		}
		if p := clampPercent(percent); p > rec.Progress {
			rec.Progress = p
		}
		st.Steps[r.step] = rec
	})
}
