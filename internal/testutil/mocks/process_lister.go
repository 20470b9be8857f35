package mocks

import (
	"context"
	"sync"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// ProcessLister returns a fixed process list.
type ProcessLister struct {
	mu    sync.Mutex
	names []string
	err   error
	calls int
}

// NewProcessLister creates a lister reporting names.
func NewProcessLister(names ...string) *ProcessLister {
	return &ProcessLister{names: names}
}

// SetNames replaces the reported process list.
func (l *ProcessLister) SetNames(names ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = names
}

// SetError makes ProcessNames fail with err.
func (l *ProcessLister) SetError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// ProcessNames returns the configured names.
func (l *ProcessLister) ProcessNames(_ context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return append([]string(nil), l.names...), nil
}

// Calls returns how many times ProcessNames was called.
func (l *ProcessLister) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var _ ports.ProcessLister = (*ProcessLister)(nil)
