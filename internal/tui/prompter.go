package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// ErrNoView is returned when a prompt is raised while no view is running.
var ErrNoView = errors.New("no progress view is running")

// Prompter shows prompts inside a running progress view.
type Prompter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewPrompter creates a prompter that is idle until a view attaches it.
func NewPrompter() *Prompter {
	return &Prompter{}
}

func (p *Prompter) attach(send func(tea.Msg)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = send
}

func (p *Prompter) detach() {
	p.attach(nil)
}

func (p *Prompter) sender() (func(tea.Msg), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return nil, ErrNoView
	}
	return p.send, nil
}

// PickDirectory asks the view for a directory.
func (p *Prompter) PickDirectory(ctx context.Context, defaultPath string) (ports.DirectoryChoice, error) {
	send, err := p.sender()
	if err != nil {
		return ports.DirectoryChoice{}, err
	}

	reply := make(chan ports.DirectoryChoice, 1)
	send(pickRequest{defaultPath: defaultPath, reply: reply})

	select {
	case choice := <-reply:
		return choice, nil
	case <-ctx.Done():
		return ports.DirectoryChoice{}, ctx.Err()
	}
}

// Confirm asks the view to choose one of buttons.
func (p *Prompter) Confirm(ctx context.Context, message string, buttons []string) (int, error) {
	if len(buttons) == 0 {
		return -1, errors.New("confirm requires at least one button")
	}
	send, err := p.sender()
	if err != nil {
		return -1, err
	}

	reply := make(chan int, 1)
	send(confirmRequest{message: message, buttons: buttons, reply: reply})

	select {
	case idx := <-reply:
		return idx, nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

var _ ports.Prompter = (*Prompter)(nil)
