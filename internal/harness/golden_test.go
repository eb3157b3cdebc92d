package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_FullCycle(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/full_cycle.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_CloudPreconditions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cloud_preconditions.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGoldenBytes_RequiresState(t *testing.T) {
	_, err := GoldenBytes("empty", NewResult())
	assert.Error(t, err)
}
