package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/weathertop/ecosystem"
	"github.com/ethereum-optimism/infra/weathertop/logging"
	"github.com/ethereum-optimism/infra/weathertop/metrics"
	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// ServiceRunner turns a service unit into a ServiceResult.
type ServiceRunner interface {
	// Prepare runs the ecosystem's run-level setup steps for root.
	Prepare(ctx context.Context, root string)
	// RunService always returns a result; every failure is recorded in it.
	RunService(ctx context.Context, unit types.ServiceUnit) types.ServiceResult
}

// Config holds configuration for creating a service runner
type Config struct {
	Log        log.Logger
	Fs         afero.Fs
	Strategy   ecosystem.Strategy
	Executor   StepExecutor
	FileLogger *logging.FileLogger // Optional store for captured step output
}

type runner struct {
	log        log.Logger
	fs         afero.Fs
	strategy   ecosystem.Strategy
	executor   StepExecutor
	fileLogger *logging.FileLogger
	tracer     trace.Tracer
}

// NewServiceRunner creates a new service runner
func NewServiceRunner(cfg Config) (ServiceRunner, error) {
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &runner{
		log:        cfg.Log,
		fs:         cfg.Fs,
		strategy:   cfg.Strategy,
		executor:   cfg.Executor,
		fileLogger: cfg.FileLogger,
		tracer:     otel.Tracer("service runner"),
	}, nil
}

func (r *runner) Prepare(ctx context.Context, root string) {
	for _, step := range r.strategy.Prepare(r.fs, root) {
		unit := types.ServiceUnit{Name: "prepare", Path: root, Root: root}
		raw, err := r.execute(ctx, unit, step)
		if err != nil {
			r.log.Warn("Prepare step could not run", "step", step.Label, "err", err)
			continue
		}
		if raw.Failed() {
			r.log.Warn("Prepare step failed", "step", step.Label, "exitCode", raw.ExitCode, "timedOut", raw.TimedOut)
		}
	}
}

// RunService implements the ServiceRunner interface
func (r *runner) RunService(ctx context.Context, unit types.ServiceUnit) (result types.ServiceResult) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("service %s", unit.Name))
	defer span.End()

	// Convert panics in strategy code into a recorded setup failure
	defer func() {
		if rec := recover(); rec != nil {
			errMsg := fmt.Sprintf("runtime error: %v", rec)
			r.log.Error("Panic while running service", "service", unit.Name, "error", errMsg)
			span.SetStatus(codes.Error, errMsg)
			result = types.NewServiceResult(unit, types.SyntheticFailure(unit, types.SetupTestName, errMsg), time.Since(start))
		}
		r.record(span, result)
	}()

	hasTests, err := r.strategy.HasTests(r.fs, unit.Path)
	if err != nil {
		return r.setupFailure(unit, start, types.NewAdapterError(unit.Name, "has-tests", err), nil)
	}
	if !hasTests {
		r.log.Info("No tests found, skipping service", "service", unit.Name, "order", unit.Order)
		return types.NoTestsResult(unit)
	}

	plan, err := r.strategy.Plan(r.fs, unit)
	if err != nil {
		return r.setupFailure(unit, start, types.NewAdapterError(unit.Name, "plan", err), nil)
	}

	r.log.Info("Running service", "service", unit.Name, "order", unit.Order, "steps", len(plan.Steps))
	res := r.runPlan(ctx, unit, plan)
	result = types.NewServiceResult(unit, res, time.Since(start))
	r.log.Info("Service finished", "service", unit.Name,
		"passed", res.Passed, "failed", res.Failed, "skipped", res.Skipped, "duration", result.Summary.Duration)
	return result
}

// runPlan executes the steps in order. A build failure or an execution
// that could not complete stops the remaining non-teardown steps.
func (r *runner) runPlan(ctx context.Context, unit types.ServiceUnit, plan ecosystem.Plan) types.ParseResult {
	var res types.ParseResult
	var teardown []ecosystem.Step

	for _, step := range plan.Steps {
		if step.Role == ecosystem.RoleTeardown {
			teardown = append(teardown, step)
			continue
		}

		stop := false
		raw, err := r.execute(ctx, unit, step)
		switch step.Role {
		case ecosystem.RoleSetup:
			if err != nil && ctx.Err() != nil {
				res.Add(types.SyntheticFailure(unit, types.SetupTestName, failureMessage(err, raw)))
				stop = true
			} else if err != nil || raw.Failed() {
				r.log.Warn("Setup step failed, continuing", "service", unit.Name, "step", step.Label, "err", err)
			}
		case ecosystem.RoleBuild:
			if err != nil {
				res.Add(types.SyntheticFailure(unit, types.BuildTestName, failureMessage(err, raw)))
				stop = true
			} else if raw.Failed() {
				res.Add(types.SyntheticFailure(unit, types.BuildTestName, buildFailureMessage(raw)))
				stop = true
			}
		default:
			if err != nil {
				res.Add(types.SyntheticFailure(unit, types.SetupTestName, failureMessage(err, raw)))
				stop = true
				break
			}
			res.Add(parser.Finalize(r.strategy.Parse(raw, unit), raw, unit))
		}
		if stop {
			break
		}
	}

	for _, step := range teardown {
		raw, err := r.execute(ctx, unit, step)
		if err != nil || raw.Failed() {
			r.log.Warn("Teardown step failed", "service", unit.Name, "step", step.Label, "err", err)
		}
	}
	return res
}

func (r *runner) execute(ctx context.Context, unit types.ServiceUnit, step ecosystem.Step) (*types.RawExecution, error) {
	r.log.Debug("Running step", "service", unit.Name, "role", step.Role, "step", step.Label)
	raw, err := r.executor.Execute(ctx, step)
	if err != nil {
		err = types.NewAdapterError(unit.Name, step.String(), err)
	} else if raw.TimedOut {
		r.log.Warn("Step timed out", "service", unit.Name, "step", step.Label,
			"err", types.NewAdapterError(unit.Name, step.String(), context.DeadlineExceeded))
	}
	if r.fileLogger != nil && raw != nil {
		if lerr := r.fileLogger.LogExecution(unit, raw, err != nil); lerr != nil {
			r.log.Warn("Failed to store step output", "service", unit.Name, "err", lerr)
		}
	}
	return raw, err
}

func (r *runner) setupFailure(unit types.ServiceUnit, start time.Time, err error, raw *types.RawExecution) types.ServiceResult {
	r.log.Error("Service could not be run", "service", unit.Name, "err", err)
	return types.NewServiceResult(unit, types.SyntheticFailure(unit, types.SetupTestName, failureMessage(err, raw)), time.Since(start))
}

func (r *runner) record(span trace.Span, result types.ServiceResult) {
	s := result.Summary
	outcome := metrics.OutcomePassed
	switch {
	case !s.HasTests:
		outcome = metrics.OutcomeNoTests
	case s.Failed > 0:
		outcome = metrics.OutcomeFailed
		span.SetStatus(codes.Error, "tests failed")
	}
	span.SetAttributes(
		attribute.String("service", s.Service),
		attribute.Int("order", s.Order),
		attribute.Int("passed", s.Passed),
		attribute.Int("failed", s.Failed),
		attribute.Int("skipped", s.Skipped),
		attribute.Bool("has_tests", s.HasTests),
	)
	metrics.RecordService(string(r.strategy.ID()), outcome, s.Passed, s.Failed, s.Skipped, s.Duration)
}

func failureMessage(err error, raw *types.RawExecution) string {
	msg := err.Error()
	if out := raw.Combined(); out != "" {
		msg += "\n" + parser.Tail(parser.Clean(out), failureTailBytes)
	}
	return msg
}

func buildFailureMessage(raw *types.RawExecution) string {
	var msg string
	if raw.TimedOut {
		msg = fmt.Sprintf("%s timed out after %s", raw.Command, raw.Duration.Round(time.Second))
	} else {
		msg = fmt.Sprintf("%s exited with code %d", raw.Command, raw.ExitCode)
	}
	if out := raw.Combined(); out != "" {
		msg += "\n" + parser.Tail(parser.Clean(out), failureTailBytes)
	}
	return msg
}
