package weathertop

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

func TestRuntimeError(t *testing.T) {
	base := types.NewDiscoveryError("/missing", errors.New("not found"))
	err := fmt.Errorf("run: %w", NewRuntimeError(types.EcosystemRust, "r-42", base))

	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.True(t, types.IsDiscoveryError(err))
	assert.Contains(t, err.Error(), "runtime error in rust run r-42")
	assert.False(t, IsRuntimeError(nil))

	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	assert.Equal(t, types.EcosystemRust, runtimeErr.Ecosystem)
	assert.Equal(t, "r-42", runtimeErr.RunID)
}

func TestRuntimeErrorBeforeRun(t *testing.T) {
	assert.Equal(t, "runtime error: bad flag", NewRuntimeError("", "", errors.New("bad flag")).Error())
	assert.Equal(t, "runtime error in php: bad flag", NewRuntimeError(types.EcosystemPHP, "", errors.New("bad flag")).Error())
}

func TestTestFailureError(t *testing.T) {
	report := &types.RunReport{
		RunID:   "r-7",
		Results: types.Results{Summary: types.Summary{Tests: 10, Passed: 7, Failed: 3}},
	}
	err := fmt.Errorf("run: %w", NewTestFailureError(types.EcosystemJava, report))

	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Equal(t, "run: test failure: 3 of 10 tests failed (java run r-7)", err.Error())
	assert.False(t, IsTestFailureError(errors.New("plain")))

	var failure *TestFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 3, failure.Failed)
	assert.Equal(t, 10, failure.Tests)
}
