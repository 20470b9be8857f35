package setup

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStep is returned for step names outside the sequence.
	ErrUnknownStep = errors.New("unknown step")
	// ErrBusy is returned when a retry is requested while a run is in flight.
	ErrBusy = errors.New("initialization is already running")
	// ErrClosed is returned after the orchestrator has been closed.
	ErrClosed = errors.New("orchestrator is closed")
)

// Step failure sentinels, one per ErrorKind. StepError unwraps to them.
var (
	ErrSpawn                       = errors.New("agent could not be started")
	ErrPrerequisiteNotRunning      = errors.New("prerequisite application not running")
	ErrKeyExtractionFailed         = errors.New("key extraction failed")
	ErrDirectorySelectionCancelled = errors.New("directory selection cancelled")
	ErrDecryptionFailed            = errors.New("decryption failed")
	ErrKeyMissing                  = errors.New("data key missing")
	ErrReadinessTimeout            = errors.New("server not ready")
	ErrSettings                    = errors.New("settings could not be saved")
	ErrUnknown                     = errors.New("unknown error")
)

// ErrorKind classifies a failed step for logging and display.
// The orchestrator treats every kind the same way.
type ErrorKind string

// Failure kinds.
const (
	KindNone                        ErrorKind = ""
	KindSpawn                       ErrorKind = "spawn_error"
	KindPrerequisiteNotRunning      ErrorKind = "prerequisite_not_running"
	KindKeyExtractionFailed         ErrorKind = "key_extraction_failed"
	KindDirectorySelectionCancelled ErrorKind = "directory_selection_cancelled"
	KindDecryptionFailed            ErrorKind = "decryption_failed"
	KindKeyMissing                  ErrorKind = "key_missing"
	KindReadinessTimeout            ErrorKind = "readiness_timeout"
	KindSettings                    ErrorKind = "settings_error"
	KindUnknown                     ErrorKind = "unknown_error"
)

// Sentinel returns the sentinel error for k.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindSpawn:
		return ErrSpawn
	case KindPrerequisiteNotRunning:
		return ErrPrerequisiteNotRunning
	case KindKeyExtractionFailed:
		return ErrKeyExtractionFailed
	case KindDirectorySelectionCancelled:
		return ErrDirectorySelectionCancelled
	case KindDecryptionFailed:
		return ErrDecryptionFailed
	case KindKeyMissing:
		return ErrKeyMissing
	case KindReadinessTimeout:
		return ErrReadinessTimeout
	case KindSettings:
		return ErrSettings
	case KindNone:
		return nil
	default:
		return ErrUnknown
	}
}

// User-facing messages and hints.
const (
	MsgPrerequisiteNotRunning = "The host application is not running. Start it and log in, then retry."
	MsgUserCancelled          = "user cancelled"
	MsgKeyMissing             = "No data key is available. Obtain the key before decrypting."
	MsgServerNotReady         = "The local service did not become ready in time."
	MsgUnknownError           = "unknown error"

	ActionStartPrerequisite = "start prerequisite application"
	ActionDecryptSlow       = "this may take minutes"
	ActionPickDirectory     = "choose a storage directory"
	ActionPickDataDir       = "choose the source data directory"
)

// Payload is step-specific data attached to a successful outcome.
type Payload interface {
	payloadStep() Step
}

// PrerequisiteFound lists the matching host processes.
type PrerequisiteFound struct {
	Processes []string
	Skipped   bool
}

// KeyObtained carries the extracted data key.
type KeyObtained struct {
	Key    string
	Cached bool
}

// DirectorySelected carries the chosen storage directory.
type DirectorySelected struct {
	Path   string
	Cached bool
}

// DataDecrypted records where decrypted data was written.
type DataDecrypted struct {
	DataDir string
	WorkDir string
}

// ServerStarted carries the agent's bound address.
type ServerStarted struct {
	Address string
	Reused  bool
}

func (PrerequisiteFound) payloadStep() Step { return StepCheckPrerequisite }
func (KeyObtained) payloadStep() Step       { return StepObtainKey }
func (DirectorySelected) payloadStep() Step { return StepSelectDirectory }
func (DataDecrypted) payloadStep() Step     { return StepDecryptStore }
func (ServerStarted) payloadStep() Step     { return StepStartServer }

// Outcome is the uniform result of executing a step.
// A failed outcome always has a non-empty Message.
type Outcome struct {
	Success    bool
	Message    string
	Kind       ErrorKind
	UserAction string
	Data       Payload
	Err        error
}

// Succeed builds a successful outcome.
func Succeed(message string, data Payload) Outcome {
	return Outcome{Success: true, Message: message, Data: data}
}

// Fail builds a failed outcome. An empty message becomes "unknown error".
func Fail(kind ErrorKind, message string) Outcome {
	if message == "" {
		message = MsgUnknownError
	}
	if kind == KindNone {
		kind = KindUnknown
	}
	return Outcome{Kind: kind, Message: message}
}

// WithUserAction returns o with a user action hint.
func (o Outcome) WithUserAction(action string) Outcome {
	o.UserAction = action
	return o
}

// WithErr returns o with the underlying cause attached.
func (o Outcome) WithErr(err error) Outcome {
	o.Err = err
	return o
}

// StepError describes a halted step. It is delivered to listeners and
// returned from runs that stop on a failure.
type StepError struct {
	Step    Step
	Kind    ErrorKind
	Message string
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

// Unwrap returns the sentinel for the failure kind.
func (e *StepError) Unwrap() error {
	return e.Kind.Sentinel()
}
