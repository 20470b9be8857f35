package setup

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Events driving a step's status statechart.
const (
	eventStart   = "START"
	eventSucceed = "SUCCEED"
	eventFail    = "FAIL"
	eventAwait   = "AWAIT_INPUT"
	eventResume  = "RESUME"
	eventRestore = "RESTORE"
	eventReset   = "RESET"
)

// lifecycleContext is the statekit context for a step machine.
type lifecycleContext struct {
	Step Step
}

// lifecycle enforces the legal status transitions of one step:
//
//	pending -> in_progress -> success | error
//	in_progress <-> waiting_user_input
//	pending -> success (restored from saved settings)
//	any -> pending (reset)
type lifecycle struct {
	step   Step
	interp *statekit.Interpreter[lifecycleContext]
}

func newLifecycle(step Step) (*lifecycle, error) {
	machine, err := statekit.NewMachine[lifecycleContext]("setup-step").
		WithInitial(statusPending).
		WithContext(lifecycleContext{Step: step}).
		State(statusPending).
		On(eventStart).Target(statusInProgress).
		On(eventRestore).Target(statusSuccess).Done().
		State(statusInProgress).
		On(eventSucceed).Target(statusSuccess).
		On(eventFail).Target(statusError).
		On(eventAwait).Target(statusWaitingUserInput).
		On(eventReset).Target(statusPending).Done().
		State(statusWaitingUserInput).
		On(eventResume).Target(statusInProgress).
		On(eventReset).Target(statusPending).Done().
		State(statusSuccess).
		On(eventReset).Target(statusPending).Done().
		State(statusError).
		On(eventReset).Target(statusPending).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build %s statechart: %w", step, err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycle{step: step, interp: interp}, nil
}

// Status returns the current status.
func (l *lifecycle) Status() StepStatus {
	return StepStatus(l.interp.State().Value)
}

// fire sends event and reports whether the machine moved to want.
// Resetting an already pending step counts as success.
func (l *lifecycle) fire(event string, want StepStatus) bool {
	if l.Status() == want && event == eventReset {
		return true
	}
	l.interp.Send(eventOf(event))
	return l.Status() == want
}

func eventOf(name string) statekit.Event {
	return statekit.Event{Type: statekit.EventType(name)}
}

func (l *lifecycle) stop() {
	l.interp.Stop()
}
