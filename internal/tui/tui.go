// Package tui provides the terminal progress view for environment setup.
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
)

// Runner is the part of the orchestrator the view drives.
type Runner interface {
	Start(ctx context.Context) error
	RetryCurrentStep(ctx context.Context) error
	State() setup.State
	Subscribe(l setup.Listener) func()
}

// ProgressOptions configures the progress view.
type ProgressOptions struct {
	// Prompter, when set, routes directory and confirm prompts into the view.
	Prompter *Prompter
	// StayOpen keeps the view on screen after completion until the user quits.
	StayOpen bool
	// LogLines is how many recent log lines to show.
	LogLines int
	// Input and Output override the terminal streams.
	Input  io.Reader
	Output io.Writer
}

// ProgressResult is the outcome of the progress view.
type ProgressResult struct {
	Completed bool
	Cancelled bool
	State     setup.State
	Failure   *setup.StepError
}

// RunProgress runs the initialization under the progress view and returns
// when it completes or the user leaves.
func RunProgress(ctx context.Context, runner Runner, opts ProgressOptions) (*ProgressResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newProgressModel(ctx, runner, opts)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(model, programOpts...)

	unsubscribe := runner.Subscribe(setup.ListenerFuncs{
		StateChanged: func(st setup.State) { p.Send(StateMsg{State: st}) },
		Log:          func(e setup.LogEntry) { p.Send(LogMsg{Entry: e}) },
	})
	defer unsubscribe()

	if opts.Prompter != nil {
		opts.Prompter.attach(p.Send)
		defer opts.Prompter.detach()
	}

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view failed: %w", err)
	}

	m, ok := finalModel.(progressModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if m.err != nil {
		return nil, m.err
	}

	return &ProgressResult{
		Completed: m.state.IsCompleted,
		Cancelled: m.cancelled,
		State:     m.state,
		Failure:   m.failure,
	}, nil
}
