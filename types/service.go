package types

import (
	"strings"
	"time"
)

// TestStatus is the status of a retained test outcome. Passed and skipped
// tests are only counted, so failed is the only status that is recorded.
type TestStatus string

const (
	TestStatusFailed TestStatus = "failed"
)

// Names used for synthesized outcomes when the native tool gives us nothing to name.
const (
	SetupTestName    = "setup"
	BuildTestName    = "build"
	ParseTestName    = "parse"
	TimeoutTestName  = "timeout"
	UnparsedTestName = "unparsed"
)

// UnparsedFailureMessage is attached to a synthetic failure when a tool exited
// non-zero and neither a report nor its console output could be interpreted.
const UnparsedFailureMessage = "Failed tests detected but failure details could not be parsed. See test log."

// ParseFailureMessage is attached to a synthetic failure when every report a
// tool wrote was unreadable and its console output held no results either.
const ParseFailureMessage = "Test reports could not be parsed and console output held no results."

// ServiceUnit is one discovered, independently testable directory.
type ServiceUnit struct {
	Name  string // Unique within a run
	Path  string // Absolute path of the service directory
	Root  string // Service root the unit was discovered under
	Order int    // 1-based discovery order
}

// RawExecution is the captured result of a single native tool invocation.
type RawExecution struct {
	Label    string // Identifies the invocation when a service runs more than one test step
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool

	// Reports holds structured report files collected after the step, keyed
	// by path relative to the step's working directory.
	Reports map[string][]byte
}

// Combined returns stdout followed by stderr.
func (r *RawExecution) Combined() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Failed reports whether the invocation exited non-zero or timed out.
func (r *RawExecution) Failed() bool {
	return r != nil && (r.ExitCode != 0 || r.TimedOut)
}

// TestOutcome is one failed test case.
type TestOutcome struct {
	Service     string     `json:"service"`
	TestName    string     `json:"test_name"`
	Status      TestStatus `json:"status"`
	Message     string     `json:"message"`
	OrderTested int        `json:"order_tested,omitempty"`
}

// NewFailure builds a failed outcome for a unit.
func NewFailure(unit ServiceUnit, testName, message string) TestOutcome {
	return TestOutcome{
		Service:     unit.Name,
		TestName:    testName,
		Status:      TestStatusFailed,
		Message:     strings.TrimSpace(message),
		OrderTested: unit.Order,
	}
}

// ParseResult is what a result parser extracts from one execution.
type ParseResult struct {
	Passed   int
	Failed   int
	Skipped  int
	Failures []TestOutcome
}

// Tests returns the number of tests represented by the result.
func (p ParseResult) Tests() int {
	return p.Passed + p.Failed + p.Skipped
}

// Empty reports whether nothing was counted or recorded.
func (p ParseResult) Empty() bool {
	return p.Tests() == 0 && len(p.Failures) == 0
}

// Add merges other into p.
func (p *ParseResult) Add(other ParseResult) {
	p.Passed += other.Passed
	p.Failed += other.Failed
	p.Skipped += other.Skipped
	p.Failures = append(p.Failures, other.Failures...)
}

// SyntheticFailure produces a result standing in for a service that could
// not be run or parsed: one test, one failure.
func SyntheticFailure(unit ServiceUnit, testName, message string) ParseResult {
	return ParseResult{
		Failed:   1,
		Failures: []TestOutcome{NewFailure(unit, testName, message)},
	}
}

// ServiceSummary holds the per-service counts once a service has completed.
type ServiceSummary struct {
	Service  string
	Order    int
	Passed   int
	Failed   int
	Skipped  int
	HasTests bool
	Duration time.Duration
}

// Tests returns passed + failed + skipped.
func (s ServiceSummary) Tests() int {
	return s.Passed + s.Failed + s.Skipped
}

// ServiceResult is what a worker hands to the aggregator for one unit.
type ServiceResult struct {
	Summary  ServiceSummary
	Failures []TestOutcome
}

// NewServiceResult combines a unit with the parse result of its executions.
func NewServiceResult(unit ServiceUnit, res ParseResult, duration time.Duration) ServiceResult {
	return ServiceResult{
		Summary: ServiceSummary{
			Service:  unit.Name,
			Order:    unit.Order,
			Passed:   res.Passed,
			Failed:   res.Failed,
			Skipped:  res.Skipped,
			HasTests: true,
			Duration: duration,
		},
		Failures: res.Failures,
	}
}

// NoTestsResult records a unit whose has-tests predicate returned false.
func NoTestsResult(unit ServiceUnit) ServiceResult {
	return ServiceResult{
		Summary: ServiceSummary{
			Service: unit.Name,
			Order:   unit.Order,
		},
	}
}
