package mocks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRunner_AddResult(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("chatlog", []string{"key"}, ports.CommandResult{Stdout: "ABC123\n"})

	result, err := runner.Run(context.Background(), "chatlog", "key")
	require.NoError(t, err)
	assert.Equal(t, "ABC123\n", result.Stdout)
}

func TestCommandRunner_NotFound(t *testing.T) {
	runner := NewCommandRunner()

	_, err := runner.Run(context.Background(), "unknown", "command")
	assert.Error(t, err)
}

func TestCommandRunner_AddError(t *testing.T) {
	runner := NewCommandRunner()
	want := errors.New("spawn failed")
	runner.AddError("chatlog", []string{"key"}, want)

	_, err := runner.Run(context.Background(), "chatlog", "key")
	assert.ErrorIs(t, err, want)
}

func TestCommandRunner_RecordsCalls(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("chatlog", []string{"key"}, ports.CommandResult{})
	runner.AddResult("chatlog", []string{"decrypt", "--data-dir", "/src"}, ports.CommandResult{})

	_, _ = runner.Run(context.Background(), "chatlog", "key")
	_, _ = runner.Run(context.Background(), "chatlog", "decrypt", "--data-dir", "/src")

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"decrypt", "--data-dir", "/src"}, calls[1].Args)
	assert.Equal(t, 2, runner.CallCount("chatlog"))
}

func TestCommandRunner_HookSeesCancellation(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("sleep", nil, ports.CommandResult{})
	ctx, cancel := context.WithCancel(context.Background())
	runner.OnRun(func(_ context.Context, _ ports.CommandCall) { cancel() })

	_, err := runner.Run(ctx, "sleep")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandRunner_Reset(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("chatlog", []string{"key"}, ports.CommandResult{})
	_, _ = runner.Run(context.Background(), "chatlog", "key")

	runner.Reset()

	assert.Empty(t, runner.Calls())
	_, err := runner.Run(context.Background(), "chatlog", "key")
	assert.Error(t, err)
}

func TestCommandRunner_Concurrent(t *testing.T) {
	runner := NewCommandRunner()
	runner.AddResult("chatlog", []string{"key"}, ports.CommandResult{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = runner.Run(context.Background(), "chatlog", "key")
		}()
	}
	wg.Wait()

	assert.Len(t, runner.Calls(), 20)
}
