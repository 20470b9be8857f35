// Package setup implements the environment initializer: the ordered setup
// steps, their executors, and the orchestrator that sequences them, tracks
// per-step status and weighted progress, and supports retry and resume.
package setup

import "fmt"

// Step identifies one stage of the setup sequence.
type Step string

// Steps in execution order, plus the terminal pseudo-step.
const (
	StepCheckPrerequisite Step = "check_prerequisite"
	StepObtainKey         Step = "obtain_key"
	StepSelectDirectory   Step = "select_directory"
	StepDecryptStore      Step = "decrypt_store"
	StepStartServer       Step = "start_server"
	StepCompleted         Step = "completed"
)

var stepOrder = []Step{
	StepCheckPrerequisite,
	StepObtainKey,
	StepSelectDirectory,
	StepDecryptStore,
	StepStartServer,
}

// Steps returns the executable steps in order. Completed is not included.
func Steps() []Step {
	return append([]Step(nil), stepOrder...)
}

// ParseStep converts a step name into a Step.
func ParseStep(s string) (Step, error) {
	for _, step := range stepOrder {
		if string(step) == s {
			return step, nil
		}
	}
	if s == string(StepCompleted) {
		return StepCompleted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, s)
}

// Index returns the position of s in the sequence, or -1 for Completed and unknown steps.
func (s Step) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s; the last step is followed by Completed.
func (s Step) Next() Step {
	i := s.Index()
	if i < 0 || i+1 >= len(stepOrder) {
		return StepCompleted
	}
	return stepOrder[i+1]
}

// Weight is the step's share of overall progress.
func (s Step) Weight() int {
	switch s {
	case StepCheckPrerequisite:
		return 10
	case StepObtainKey:
		return 20
	case StepSelectDirectory:
		return 10
	case StepDecryptStore:
		return 40
	case StepStartServer:
		return 20
	default:
		return 0
	}
}

// Title is the short display name of the step.
func (s Step) Title() string {
	switch s {
	case StepCheckPrerequisite:
		return "Check host application"
	case StepObtainKey:
		return "Obtain data key"
	case StepSelectDirectory:
		return "Choose storage directory"
	case StepDecryptStore:
		return "Decrypt data"
	case StepStartServer:
		return "Start local service"
	case StepCompleted:
		return "Done"
	default:
		return string(s)
	}
}

// Description explains what the step does.
func (s Step) Description() string {
	switch s {
	case StepCheckPrerequisite:
		return "Make sure the host application is running and logged in"
	case StepObtainKey:
		return "Extract the data key from the running host application"
	case StepSelectDirectory:
		return "Pick where decrypted data will be stored"
	case StepDecryptStore:
		return "Decrypt the local data store into the storage directory"
	case StepStartServer:
		return "Launch the agent service and wait until it answers"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (s Step) String() string {
	return string(s)
}

// StepStatus is the lifecycle status of a single step.
type StepStatus string

// Raw status names, shared with the step statechart.
const (
	statusPending          = "pending"
	statusInProgress       = "in_progress"
	statusSuccess          = "success"
	statusError            = "error"
	statusWaitingUserInput = "waiting_user_input"
)

// Step statuses.
const (
	StatusPending          StepStatus = statusPending
	StatusInProgress       StepStatus = statusInProgress
	StatusSuccess          StepStatus = statusSuccess
	StatusError            StepStatus = statusError
	StatusWaitingUserInput StepStatus = statusWaitingUserInput
)

// String implements fmt.Stringer.
func (s StepStatus) String() string {
	return string(s)
}
