package mocks

import (
	"context"
	"sync"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// Prompter is a scripted ports.Prompter.
type Prompter struct {
	mu           sync.Mutex
	choice       ports.DirectoryChoice
	queued       []ports.DirectoryChoice
	pickErr      error
	confirmIndex int
	confirmErr   error
	defaults     []string
	messages     []string
	beforePick   func()
}

// NewPrompter returns a prompter that picks path and confirms with button 0.
func NewPrompter(path string) *Prompter {
	return &Prompter{choice: ports.DirectoryChoice{Path: path}}
}

// CancelPick makes PickDirectory report a cancellation.
func (p *Prompter) CancelPick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.choice = ports.DirectoryChoice{Cancelled: true}
}

// QueuePicks makes the next PickDirectory calls return paths in order before
// falling back to the default choice.
func (p *Prompter) QueuePicks(paths ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range paths {
		p.queued = append(p.queued, ports.DirectoryChoice{Path: path})
	}
}

// FailPick makes PickDirectory return err.
func (p *Prompter) FailPick(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pickErr = err
}

// BeforePick registers fn to run when PickDirectory is entered.
func (p *Prompter) BeforePick(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beforePick = fn
}

// ConfirmWith sets the index (and error) Confirm returns.
func (p *Prompter) ConfirmWith(index int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmIndex = index
	p.confirmErr = err
}

// PickDirectory records defaultPath and returns the scripted choice.
func (p *Prompter) PickDirectory(_ context.Context, defaultPath string) (ports.DirectoryChoice, error) {
	p.mu.Lock()
	p.defaults = append(p.defaults, defaultPath)
	fn := p.beforePick
	choice, err := p.choice, p.pickErr
	if len(p.queued) > 0 {
		choice, p.queued = p.queued[0], p.queued[1:]
	}
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
	return choice, err
}

// Confirm records message and returns the scripted index.
func (p *Prompter) Confirm(_ context.Context, message string, _ []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return p.confirmIndex, p.confirmErr
}

// PickDefaults returns every default path offered to PickDirectory.
func (p *Prompter) PickDefaults() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.defaults...)
}

// ConfirmMessages returns every message passed to Confirm.
func (p *Prompter) ConfirmMessages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

var _ ports.Prompter = (*Prompter)(nil)
