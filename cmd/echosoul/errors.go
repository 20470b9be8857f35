package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/app"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
)

// UserError represents a user-friendly error with actionable suggestions.
type UserError struct {
	Code       string // Error code for categorization (e.g., "AGENT_NOT_FOUND")
	Message    string // User-friendly error message
	Context    string // Step or file the error relates to
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *UserError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (at %s)", e.Context)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain support.
func (e *UserError) Unwrap() error {
	return e.Underlying
}

// hint is the code and suggestion shown for a known failure.
type hint struct {
	code       string
	suggestion string
}

var stepHints = map[error]hint{
	setup.ErrSpawn: {
		code:       "AGENT_NOT_FOUND",
		suggestion: "Install the agent or point --agent at its executable.",
	},
	setup.ErrPrerequisiteNotRunning: {
		code:       "PREREQUISITE_NOT_RUNNING",
		suggestion: "Start the host application, log in, then run 'echosoul init' again.",
	},
	setup.ErrKeyExtractionFailed: {
		code:       "KEY_EXTRACTION_FAILED",
		suggestion: "Make sure the host application is logged in and the agent may read its memory.",
	},
	setup.ErrDirectorySelectionCancelled: {
		code:       "DIRECTORY_NOT_SELECTED",
		suggestion: "Run 'echosoul init' again and choose where decrypted data should be stored.",
	},
	setup.ErrDecryptionFailed: {
		code:       "DECRYPTION_FAILED",
		suggestion: "Check --data-dir, or run 'echosoul reset' to obtain a fresh key.",
	},
	setup.ErrKeyMissing: {
		code:       "KEY_MISSING",
		suggestion: "Run 'echosoul reset' and initialize again.",
	},
	setup.ErrReadinessTimeout: {
		code:       "SERVICE_NOT_READY",
		suggestion: "Check that nothing else listens on the service address, or raise agent.readiness_attempts.",
	},
	setup.ErrSettings: {
		code:       "SETTINGS_NOT_SAVED",
		suggestion: "Check that the settings file and its directory are writable.",
	},
}

// explain converts known failures into a UserError. Other errors pass through.
func explain(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	if errors.Is(err, app.ErrInvalidConfig) {
		return &UserError{
			Code:       "CONFIG_INVALID",
			Message:    err.Error(),
			Context:    cfgFile,
			Suggestion: "Fix the config file or the flags you passed.",
			Underlying: err,
		}
	}

	var stepErr *setup.StepError
	if errors.As(err, &stepErr) {
		ue := &UserError{
			Code:       "STEP_FAILED",
			Message:    stepErr.Message,
			Context:    stepErr.Step.Title(),
			Underlying: err,
		}
		if h, ok := stepHints[stepErr.Kind.Sentinel()]; ok {
			ue.Code = h.code
			ue.Suggestion = h.suggestion
		}
		return ue
	}

	return err
}
