package weathertop

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include a failed clone, a missing service root or an unwritable
// output directory. Ecosystem and RunID are empty when the error happened
// before a run started.
type RuntimeError struct {
	Ecosystem types.Ecosystem
	RunID     string
	Err       error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.RunID != "":
		return fmt.Sprintf("runtime error in %s run %s: %v", e.Ecosystem, e.RunID, e.Err)
	case e.Ecosystem != "":
		return fmt.Sprintf("runtime error in %s: %v", e.Ecosystem, e.Err)
	default:
		return fmt.Sprintf("runtime error: %v", e.Err)
	}
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(eco types.Ecosystem, runID string, err error) *RuntimeError {
	return &RuntimeError{Ecosystem: eco, RunID: runID, Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError is returned in run-once mode when a run finished with
// failing tests and was asked to fail on them (exit code 1).
type TestFailureError struct {
	Ecosystem types.Ecosystem
	RunID     string
	Failed    int
	Tests     int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d of %d tests failed (%s run %s)", e.Failed, e.Tests, e.Ecosystem, e.RunID)
}

// NewTestFailureError takes the counts from the report's summary.
func NewTestFailureError(eco types.Ecosystem, report *types.RunReport) *TestFailureError {
	e := &TestFailureError{Ecosystem: eco}
	if report != nil {
		e.RunID = report.RunID
		e.Failed = report.Results.Summary.Failed
		e.Tests = report.Results.Summary.Tests
	}
	return e
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
