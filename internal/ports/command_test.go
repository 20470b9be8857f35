package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandResult_Success(t *testing.T) {
	t.Parallel()

	assert.True(t, CommandResult{ExitCode: 0, Stdout: "output"}.Success())
	assert.False(t, CommandResult{ExitCode: 1, Stderr: "error"}.Success())
}

func TestCommandResult_FailureMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{name: "trimmed stderr", stderr: "  key not found\n", want: "key not found"},
		{name: "empty stderr", stderr: "", want: "unknown error"},
		{name: "whitespace only", stderr: " \n\t", want: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := CommandResult{ExitCode: 1, Stderr: tt.stderr}
			assert.Equal(t, tt.want, result.FailureMessage())
		})
	}
}
