package types

import (
	"fmt"
	"time"
)

// SchemaVersion is the version of the canonical report document.
const SchemaVersion = "0.0.1"

// RunReport is the canonical aggregate document for one run.
type RunReport struct {
	SchemaVersion string  `json:"schema-version"`
	RunID         string  `json:"runid,omitempty"`
	Results       Results `json:"results"`
}

// Results is the body of a RunReport.
type Results struct {
	Tool           string          `json:"tool"`
	Summary        Summary         `json:"summary"`
	Tests          []TestOutcome   `json:"tests"`
	NoTests        []string        `json:"no_tests"`
	ServiceDetails []ServiceDetail `json:"service_details,omitempty"`
}

// Summary holds run-level totals. StartTime and StopTime are epoch milliseconds.
type Summary struct {
	Services  int     `json:"services"`
	Tests     int     `json:"tests"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	PassRate  float64 `json:"pass_rate"`
	StartTime int64   `json:"start_time"`
	StopTime  int64   `json:"stop_time"`
}

// ServiceDetail is the per-service entry of a report.
type ServiceDetail struct {
	ServiceName string `json:"service_name"`
	OrderTested int    `json:"order_tested"`
	TestsRun    int    `json:"tests_run"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	HasTests    bool   `json:"has_tests"`
}

// PassRate returns passed/tests, or 0 when no tests ran.
func PassRate(passed, tests int) float64 {
	if tests <= 0 {
		return 0.0
	}
	return float64(passed) / float64(tests)
}

// PassRateDisplay renders the pass rate as a percentage with one decimal place.
func (s Summary) PassRateDisplay() string {
	return fmt.Sprintf("%.1f%%", s.PassRate*100)
}

// Duration returns the wall-clock time between start and stop.
func (s Summary) Duration() time.Duration {
	if s.StopTime < s.StartTime {
		return 0
	}
	return time.Duration(s.StopTime-s.StartTime) * time.Millisecond
}

// HasFailures reports whether any test failed.
func (r *RunReport) HasFailures() bool {
	return r != nil && r.Results.Summary.Failed > 0
}

// EpochMillis converts t to epoch milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
