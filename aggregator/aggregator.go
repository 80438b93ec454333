// Package aggregator accumulates per-service results as they complete and
// produces the run report once all of them are in.
package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// Aggregator is safe for concurrent use. Results may arrive in any order;
// the report is always emitted in discovery order.
type Aggregator struct {
	tool string
	now  func() time.Time

	mu      sync.Mutex
	start   time.Time
	stop    time.Time
	results []types.ServiceResult
}

// New returns an aggregator for a run of the given tool.
func New(tool string) *Aggregator {
	return &Aggregator{tool: tool, now: time.Now}
}

// Start records the run start time. It is a no-op once a start time is set.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.start.IsZero() {
		a.start = a.now()
	}
}

// Add records one completed service.
func (a *Aggregator) Add(result types.ServiceResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.start.IsZero() {
		a.start = a.now()
	}
	failures := make([]types.TestOutcome, len(result.Failures))
	copy(failures, result.Failures)
	result.Failures = failures
	a.results = append(a.results, result)
}

// Len returns the number of services recorded so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Finalize computes the totals and builds the report. The stop time is
// fixed by the first call; later calls return an equivalent report.
func (a *Aggregator) Finalize(runID string) *types.RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.start.IsZero() {
		a.start = a.now()
	}
	if a.stop.IsZero() {
		a.stop = a.now()
	}

	ordered := make([]types.ServiceResult, len(a.results))
	copy(ordered, a.results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Summary.Order < ordered[j].Summary.Order
	})

	results := types.Results{
		Tool:           a.tool,
		Tests:          []types.TestOutcome{},
		NoTests:        []string{},
		ServiceDetails: make([]types.ServiceDetail, 0, len(ordered)),
	}
	sum := &results.Summary
	for _, r := range ordered {
		s := r.Summary
		results.ServiceDetails = append(results.ServiceDetails, types.ServiceDetail{
			ServiceName: s.Service,
			OrderTested: s.Order,
			TestsRun:    s.Tests(),
			Passed:      s.Passed,
			Failed:      s.Failed,
			Skipped:     s.Skipped,
			HasTests:    s.HasTests,
		})
		if !s.HasTests {
			results.NoTests = append(results.NoTests, s.Service)
			continue
		}
		sum.Services++
		sum.Passed += s.Passed
		sum.Failed += s.Failed
		sum.Skipped += s.Skipped
		results.Tests = append(results.Tests, r.Failures...)
	}
	sum.Tests = sum.Passed + sum.Failed + sum.Skipped
	sum.PassRate = types.PassRate(sum.Passed, sum.Tests)
	sum.StartTime = types.EpochMillis(a.start)
	sum.StopTime = types.EpochMillis(a.stop)

	return &types.RunReport{
		SchemaVersion: types.SchemaVersion,
		RunID:         runID,
		Results:       results,
	}
}
