package weathertop

import (
	"time"

	"github.com/ethereum-optimism/infra/weathertop/metrics"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// MetricsReporter is responsible for reporting metrics from a finished run.
type MetricsReporter interface {
	ReportResults(report *types.RunReport, duration time.Duration)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct {
	ecosystem types.Ecosystem
}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter(eco types.Ecosystem) *DefaultMetricsReporter {
	return &DefaultMetricsReporter{ecosystem: eco}
}

// ReportResults reports the run totals to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(report *types.RunReport, duration time.Duration) {
	result := metrics.OutcomePassed
	if report.HasFailures() {
		result = metrics.OutcomeFailed
	}
	metrics.RecordRun(
		string(r.ecosystem),
		report.RunID,
		result,
		report.Results.Summary.PassRate,
		duration,
	)
}
