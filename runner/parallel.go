package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// ServiceWorkResult contains the result of running one service unit
type ServiceWorkResult struct {
	Unit   types.ServiceUnit
	Result types.ServiceResult
}

// ParallelExecutor runs service units across a bounded number of workers
type ParallelExecutor struct {
	runner      ServiceRunner
	concurrency int
	log         log.Logger
}

// NewParallelExecutor creates a new parallel executor with validation
func NewParallelExecutor(runner ServiceRunner, concurrency int, lgr log.Logger) *ParallelExecutor {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if concurrency < 0 {
		panic("concurrency cannot be negative")
	}
	if concurrency == 0 {
		concurrency = 1
	}
	if lgr == nil {
		lgr = log.New()
	}

	// Log a warning for unreasonable concurrency values
	if concurrency > MaxReasonableConcurrency {
		lgr.Warn("Very high concurrency requested", "concurrency", concurrency,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	return &ParallelExecutor{
		runner:      runner,
		concurrency: concurrency,
		log:         lgr.New("component", "parallel-executor"),
	}
}

// Execute runs units and hands each completed result to collect, which is
// only ever called from the calling goroutine. Units that were never started
// because ctx ended are returned in discovery order.
func (pe *ParallelExecutor) Execute(ctx context.Context, units []types.ServiceUnit, collect func(types.ServiceResult)) []types.ServiceUnit {
	start := time.Now()
	if len(units) == 0 {
		pe.log.Debug("No service units to execute")
		return nil
	}

	pe.log.Info("Starting service execution", "services", len(units), "concurrency", pe.concurrency)

	// Conservative buffer: 2x concurrency or 100, whichever is smaller
	bufferSize := min(pe.concurrency*2, 100)
	workChan := make(chan types.ServiceUnit, bufferSize)
	resultChan := make(chan ServiceWorkResult, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < pe.concurrency; i++ {
		wg.Add(1)
		go pe.worker(ctx, i, &wg, workChan, resultChan)
	}

	// Send work to workers
	go func() {
		defer close(workChan)
		for _, unit := range units {
			select {
			case workChan <- unit:
			case <-ctx.Done():
				pe.log.Debug("Context cancelled while sending work items")
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	done := make(map[int]struct{}, len(units))
	for workResult := range resultChan {
		done[workResult.Unit.Order] = struct{}{}
		collect(workResult.Result)
	}

	var undispatched []types.ServiceUnit
	for _, unit := range units {
		if _, ok := done[unit.Order]; !ok {
			undispatched = append(undispatched, unit)
		}
	}
	if len(undispatched) > 0 {
		pe.log.Warn("Run ended before all services started", "notStarted", len(undispatched), "total", len(units))
	}

	pe.log.Info("Service execution completed",
		"duration", time.Since(start),
		"completed", len(done),
		"total", len(units))
	return undispatched
}

// worker processes units until the work channel closes or ctx ends. A unit
// that has started is always reported, even when ctx ends while it runs.
func (pe *ParallelExecutor) worker(ctx context.Context, id int, wg *sync.WaitGroup, workChan <-chan types.ServiceUnit, resultChan chan<- ServiceWorkResult) {
	defer wg.Done()

	workerID := fmt.Sprintf("worker-%d", id)
	pe.log.Debug("Worker starting", "workerID", workerID)
	defer pe.log.Debug("Worker exiting", "workerID", workerID)

	for {
		select {
		case unit, ok := <-workChan:
			if !ok {
				return // Channel closed, worker should exit
			}
			if ctx.Err() != nil {
				pe.log.Debug("Context cancelled before service started", "workerID", workerID, "service", unit.Name)
				return
			}

			pe.log.Debug("Worker processing service", "workerID", workerID, "service", unit.Name, "order", unit.Order)
			result := pe.runner.RunService(ctx, unit)
			resultChan <- ServiceWorkResult{Unit: unit, Result: result}

		case <-ctx.Done():
			pe.log.Debug("Worker received context cancellation", "workerID", workerID)
			return
		}
	}
}
