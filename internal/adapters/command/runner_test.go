package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run_Success(t *testing.T) {
	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestRealRunner_Run_Failure(t *testing.T) {
	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "false")
	require.NoError(t, err, "non-zero exit should be reported in the result")
	assert.False(t, result.Success())
	assert.NotZero(t, result.ExitCode)
}

func TestRealRunner_Run_NotFound(t *testing.T) {
	runner := NewRealRunner()

	_, err := runner.Run(context.Background(), "nonexistent-command-12345")
	assert.Error(t, err)
}

func TestRealRunner_Run_WithStderr(t *testing.T) {
	runner := NewRealRunner()

	result, err := runner.Run(context.Background(), "sh", "-c", "echo error >&2; exit 1")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, "error\n", result.Stderr)
	assert.Equal(t, "error", result.FailureMessage())
}

func TestRealRunner_Run_ContextCancellation(t *testing.T) {
	runner := NewRealRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "sleep", "10")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRealRunner_WithEnv(t *testing.T) {
	runner := NewRealRunner(WithEnv("ECHOSOUL_TEST_VALUE=42"))

	result, err := runner.Run(context.Background(), "sh", "-c", "echo $ECHOSOUL_TEST_VALUE")
	require.NoError(t, err)
	assert.Equal(t, "42", strings.TrimSpace(result.Stdout))
}

func TestRealRunner_WithDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))
	runner := NewRealRunner(WithDir(dir))

	result, err := runner.Run(context.Background(), "ls")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "marker")
}
