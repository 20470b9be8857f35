package tui

import (
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// StateMsg carries a new orchestrator state snapshot.
type StateMsg struct {
	State setup.State
}

// LogMsg carries a relayed log entry.
type LogMsg struct {
	Entry setup.LogEntry
}

// runDoneMsg is sent when a Start or retry call returns.
type runDoneMsg struct {
	err error
}

// pickRequest asks the view for a directory.
type pickRequest struct {
	defaultPath string
	reply       chan<- ports.DirectoryChoice
}

// confirmRequest asks the view to choose between buttons.
type confirmRequest struct {
	message string
	buttons []string
	reply   chan<- int
}
