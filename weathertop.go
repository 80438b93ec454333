package weathertop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/weathertop/exitcodes"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// weathertop implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &weathertop{}

// weathertop runs the test pipeline once, or on an interval.
type weathertop struct {
	ctx      context.Context
	config   *Config
	version  string
	pipeline Pipeline

	mu     sync.Mutex
	report *types.RunReport

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*weathertop, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}

	config.Log.Debug("Creating weathertop with config",
		"ecosystem", config.Ecosystem,
		"cloneDir", config.CloneDir,
		"skipClone", config.SkipClone,
		"concurrency", config.Concurrency,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	p, err := NewPipeline(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	config.Log.Info("weathertop.New: created pipeline", "ecosystem", config.Ecosystem)

	return &weathertop{
		ctx:              ctx,
		config:           config,
		version:          version,
		pipeline:         p,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the pipeline immediately and then at the configured interval.
// Start implements the cliapp.Lifecycle interface.
func (w *weathertop) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			w.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	w.ctx = ctx
	w.done = make(chan struct{})
	w.running.Store(true)

	if w.config.RunOnce {
		w.config.Log.Info("Starting weathertop in run-once mode", "version", w.version)
	} else {
		w.config.Log.Info("Starting weathertop in continuous mode", "version", w.version, "interval", w.config.RunInterval)
	}

	report, err := w.runTests(ctx)
	if err != nil && w.config.RunOnce {
		w.running.Store(false)
		return err
	}
	if err != nil {
		w.config.Log.Error("Initial run failed", "err", err)
	}

	if w.config.RunOnce {
		w.running.Store(false)
		if w.config.FailOnTestFailure && report.HasFailures() {
			w.config.Log.Warn("Run completed with test failures, returning exit code 1")
			return NewTestFailureError(w.config.Ecosystem, report)
		}
		go func() {
			w.shutdownCallback(nil)
		}()
		return nil
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.config.Log.Debug("Starting periodic runner goroutine", "interval", w.config.RunInterval)

		for {
			select {
			case <-time.After(w.config.RunInterval):
				if !w.running.Load() {
					w.config.Log.Debug("Service stopped, exiting periodic runner")
					return
				}
				w.config.Log.Info("Starting periodic run")
				if _, err := w.runTests(ctx); err != nil {
					w.config.Log.Error("Error in periodic run", "err", err)
				}
				w.config.Log.Info("Next run scheduled", "interval", w.config.RunInterval)

			case <-w.done:
				w.config.Log.Debug("Done signal received, stopping periodic runner")
				return

			case <-ctx.Done():
				w.config.Log.Debug("Context canceled, stopping periodic runner")
				w.running.Store(false)
				return
			}
		}
	}()
	w.config.Log.Debug("weathertop started successfully")
	return nil
}

func (w *weathertop) runTests(ctx context.Context) (*types.RunReport, error) {
	report, err := w.pipeline.Run(ctx)
	if report != nil {
		w.mu.Lock()
		w.report = report
		w.mu.Unlock()
	}
	if err != nil {
		if !IsRuntimeError(err) {
			var runID string
			if report != nil {
				runID = report.RunID
			}
			err = NewRuntimeError(w.config.Ecosystem, runID, err)
		}
		return report, err
	}
	return report, nil
}

// LastReport returns the report of the most recent completed run.
func (w *weathertop) LastReport() *types.RunReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.report
}

// Stop stops the weathertop service.
// Stop implements the cliapp.Lifecycle interface.
func (w *weathertop) Stop(ctx context.Context) error {
	w.config.Log.Info("Stopping weathertop")

	if !w.running.Load() {
		w.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	w.running.Store(false)

	w.config.Log.Debug("Sending done signal to goroutines")
	close(w.done)

	if err := w.WaitForShutdown(ctx); err != nil {
		return err
	}
	w.config.Log.Info("weathertop stopped successfully")
	return nil
}

// WaitForShutdown blocks until the periodic runner has exited or ctx is done.
func (w *weathertop) WaitForShutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped returns true if the weathertop service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (w *weathertop) Stopped() bool {
	return !w.running.Load()
}
