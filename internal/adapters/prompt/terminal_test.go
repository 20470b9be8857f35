package prompt

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickDirectory(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		want      string
		cancelled bool
	}{
		{name: "default", input: "\n", want: "/data/default"},
		{name: "explicit", input: "/srv/echo\n", want: "/srv/echo"},
		{name: "home relative", input: "~/echo\n", want: filepath.Join(home, "echo")},
		{name: "quit", input: "q\n", cancelled: true},
		{name: "end of input", input: "", cancelled: true},
		{name: "no trailing newline", input: "/srv/last", want: "/srv/last"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			term := NewTerminal(strings.NewReader(tt.input), &out)

			choice, err := term.PickDirectory(context.Background(), "/data/default")

			require.NoError(t, err)
			assert.Equal(t, tt.cancelled, choice.Cancelled)
			assert.Equal(t, tt.want, choice.Path)
			assert.Contains(t, out.String(), "Directory")
			assert.Contains(t, out.String(), "/data/default")
		})
	}
}

func TestPickDirectory_ContextCancelled(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer w.Close()
	term := NewTerminal(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := term.PickDirectory(ctx, "/x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminal_AnswerAfterCancelledQuestion(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer func() { _ = w.Close() }()
	term := NewTerminal(r, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := term.PickDirectory(ctx, "/x")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	type answer struct {
		idx int
		err error
	}
	done := make(chan answer, 1)
	go func() {
		idx, err := term.Confirm(context.Background(), "Retry?", []string{"Retry", "Quit"})
		done <- answer{idx, err}
	}()

	_, err = io.WriteString(w, "2\n")
	require.NoError(t, err)

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, 1, got.idx)
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm did not receive the answer")
	}
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	buttons := []string{"Retry", "Quit"}
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"empty picks first", "\n", 0},
		{"number", "2\n", 1},
		{"label prefix", "qu\n", 1},
		{"case insensitive", "RETRY\n", 0},
		{"retries after garbage", "maybe\n2\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			term := NewTerminal(strings.NewReader(tt.input), &out)

			got, err := term.Confirm(context.Background(), "Step failed. Retry?", buttons)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[1] Retry")
			assert.Contains(t, out.String(), "[2] Quit")
		})
	}
}

func TestConfirm_Errors(t *testing.T) {
	t.Parallel()

	term := NewTerminal(strings.NewReader("x\ny\nz\n"), io.Discard)
	_, err := term.Confirm(context.Background(), "?", []string{"Retry", "Quit"})
	assert.ErrorIs(t, err, ErrInvalidChoice)

	term = NewTerminal(strings.NewReader(""), io.Discard)
	_, err = term.Confirm(context.Background(), "?", []string{"Retry"})
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = term.Confirm(context.Background(), "?", nil)
	assert.ErrorIs(t, err, ErrNoButtons)
}
