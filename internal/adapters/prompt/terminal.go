// Package prompt provides a line-based terminal implementation of ports.Prompter.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

var (
	// ErrNoInput is returned when input ends before an answer is given.
	ErrNoInput = errors.New("no input")
	// ErrInvalidChoice is returned after repeated unrecognized answers.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrNoButtons is returned by Confirm when called without buttons.
	ErrNoButtons = errors.New("confirm requires at least one button")
)

const maxAttempts = 3

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Faint(true)
)

// Terminal asks questions on a line-oriented terminal. A single reader
// goroutine owns the input, so a line typed after a cancelled question is
// delivered to the next one.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	start   sync.Once
	lines   chan string
	readErr error // set before lines is closed
}

// NewTerminal creates a prompter reading answers from in and writing questions to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, lines: make(chan string)}
}

// PickDirectory asks for a directory. An empty answer accepts defaultPath;
// "q" or end of input cancels.
func (t *Terminal) PickDirectory(ctx context.Context, defaultPath string) (ports.DirectoryChoice, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("%s %s: ", questionStyle.Render("Directory"), hintStyle.Render("["+defaultPath+"] (q to cancel)"))
	line, err := t.readLine(ctx)
	if errors.Is(err, ErrNoInput) {
		t.printf("\n")
		return ports.DirectoryChoice{Cancelled: true}, nil
	}
	if err != nil {
		return ports.DirectoryChoice{}, err
	}

	switch strings.ToLower(line) {
	case "q", "quit", "cancel":
		return ports.DirectoryChoice{Cancelled: true}, nil
	case "":
		line = defaultPath
	}

	path, err := expandPath(line)
	if err != nil {
		return ports.DirectoryChoice{}, err
	}
	return ports.DirectoryChoice{Path: path}, nil
}

// Confirm shows message with numbered buttons and returns the chosen index.
// An answer may be the button number or a case-insensitive prefix of its
// label; an empty answer picks the first button.
func (t *Terminal) Confirm(ctx context.Context, message string, buttons []string) (int, error) {
	if len(buttons) == 0 {
		return -1, ErrNoButtons
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.printf("%s\n", questionStyle.Render(message))
	options := make([]string, len(buttons))
	for i, b := range buttons {
		options[i] = fmt.Sprintf("[%d] %s", i+1, b)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		t.printf("%s: ", strings.Join(options, "  "))
		line, err := t.readLine(ctx)
		if err != nil {
			return -1, err
		}
		if idx, ok := matchButton(line, buttons); ok {
			return idx, nil
		}
		t.printf("%s\n", hintStyle.Render(fmt.Sprintf("unrecognized choice %q", line)))
	}
	return -1, ErrInvalidChoice
}

func (t *Terminal) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) readLoop() {
	defer close(t.lines)
	for {
		line, err := t.in.ReadString('\n')
		if err != nil {
			if strings.TrimSpace(line) != "" {
				t.lines <- line
			}
			t.readErr = err
			return
		}
		t.lines <- line
	}
}

// readLine reads one trimmed line, giving up when ctx is done.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.start.Do(func() { go t.readLoop() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-t.lines:
		if ok {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(t.readErr, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read answer: %w", t.readErr)
	}
}

func matchButton(answer string, buttons []string) (int, bool) {
	if answer == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(buttons) {
			return n - 1, true
		}
		return 0, false
	}
	answer = strings.ToLower(answer)
	for i, b := range buttons {
		if strings.HasPrefix(strings.ToLower(b), answer) {
			return i, true
		}
	}
	return 0, false
}

// expandPath resolves a leading ~ and makes path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

var _ ports.Prompter = (*Terminal)(nil)
