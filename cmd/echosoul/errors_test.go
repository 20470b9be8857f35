package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
)

func TestExplain_StepErrors(t *testing.T) {
	tests := []struct {
		kind setup.ErrorKind
		step setup.Step
		code string
	}{
		{setup.KindSpawn, setup.StepObtainKey, "AGENT_NOT_FOUND"},
		{setup.KindPrerequisiteNotRunning, setup.StepCheckPrerequisite, "PREREQUISITE_NOT_RUNNING"},
		{setup.KindKeyExtractionFailed, setup.StepObtainKey, "KEY_EXTRACTION_FAILED"},
		{setup.KindDirectorySelectionCancelled, setup.StepSelectDirectory, "DIRECTORY_NOT_SELECTED"},
		{setup.KindDecryptionFailed, setup.StepDecryptStore, "DECRYPTION_FAILED"},
		{setup.KindKeyMissing, setup.StepDecryptStore, "KEY_MISSING"},
		{setup.KindReadinessTimeout, setup.StepStartServer, "SERVICE_NOT_READY"},
		{setup.KindSettings, setup.StepSelectDirectory, "SETTINGS_NOT_SAVED"},
		{setup.KindUnknown, setup.StepStartServer, "STEP_FAILED"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			stepErr := &setup.StepError{Step: tt.step, Kind: tt.kind, Message: "it broke"}

			err := explain(fmt.Errorf("run: %w", stepErr))

			var userErr *UserError
			require.ErrorAs(t, err, &userErr)
			assert.Equal(t, tt.code, userErr.Code)
			assert.Equal(t, "it broke", userErr.Message)
			assert.Equal(t, tt.step.Title(), userErr.Context)
			assert.ErrorIs(t, err, tt.kind.Sentinel())
			if tt.code != "STEP_FAILED" {
				assert.NotEmpty(t, userErr.Suggestion)
			}
		})
	}
}

func TestExplain_PassThrough(t *testing.T) {
	assert.NoError(t, explain(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, explain(plain))

	ue := &UserError{Code: "X", Message: "m"}
	assert.Same(t, ue, explain(ue))
}

func TestUserError_Error(t *testing.T) {
	assert.Equal(t, "msg", (&UserError{Message: "msg"}).Error())
	assert.Equal(t, "msg (at here)", (&UserError{Message: "msg", Context: "here"}).Error())
}
