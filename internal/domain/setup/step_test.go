package setup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteps_Order(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Step{
		StepCheckPrerequisite,
		StepObtainKey,
		StepSelectDirectory,
		StepDecryptStore,
		StepStartServer,
	}, Steps())
}

func TestStep_Next(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StepObtainKey, StepCheckPrerequisite.Next())
	assert.Equal(t, StepStartServer, StepDecryptStore.Next())
	assert.Equal(t, StepCompleted, StepStartServer.Next())
	assert.Equal(t, StepCompleted, StepCompleted.Next())
}

func TestStep_Weights(t *testing.T) {
	t.Parallel()

	weights := map[Step]int{}
	for _, s := range Steps() {
		weights[s] = s.Weight()
	}
	assert.Equal(t, map[Step]int{
		StepCheckPrerequisite: 10,
		StepObtainKey:         20,
		StepSelectDirectory:   10,
		StepDecryptStore:      40,
		StepStartServer:       20,
	}, weights)
	assert.Zero(t, StepCompleted.Weight())
}

func TestParseStep(t *testing.T) {
	t.Parallel()

	step, err := ParseStep("decrypt_store")
	require.NoError(t, err)
	assert.Equal(t, StepDecryptStore, step)

	step, err = ParseStep("completed")
	require.NoError(t, err)
	assert.Equal(t, StepCompleted, step)

	_, err = ParseStep("bogus")
	assert.True(t, errors.Is(err, ErrUnknownStep))
}

func TestStep_TitlesAreSet(t *testing.T) {
	t.Parallel()

	for _, s := range Steps() {
		assert.NotEmpty(t, s.Title(), s)
		assert.NotEmpty(t, s.Description(), s)
	}
}
