// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"strings"
)

// CommandResult represents the result of executing a run-to-completion command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// FailureMessage returns the trimmed stderr of a failed command,
// falling back to "unknown error" when the command wrote nothing.
func (r CommandResult) FailureMessage() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	return "unknown error"
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// CommandRunner executes short-lived commands to completion.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}

// ProcessLister reports the names of processes running on the host.
type ProcessLister interface {
	ProcessNames(ctx context.Context) ([]string, error)
}
