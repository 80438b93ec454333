package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/ecosystem"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

var _ StepExecutor = (*stepExecutor)(nil)

// StepExecutor runs one native command.
//
// A non-zero exit or a step timeout is not an error: both are reported on
// the returned RawExecution so the output can still be parsed. An error is
// returned only when the command could not be run to completion at all
// (missing tool or directory, or cancellation of ctx), in which case the
// RawExecution holds whatever output was captured.
type StepExecutor interface {
	Execute(ctx context.Context, step ecosystem.Step) (*types.RawExecution, error)
}

// CommandBuilder creates the command for a step, plus a cleanup func.
type CommandBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// ExecutorConfig holds configuration for creating a step executor
type ExecutorConfig struct {
	Log            log.Logger
	Fs             afero.Fs
	DefaultTimeout time.Duration
	CmdBuilder     CommandBuilder
	TailBytes      int
}

type stepExecutor struct {
	log            log.Logger
	fs             afero.Fs
	defaultTimeout time.Duration
	cmdBuilder     CommandBuilder
	tailBytes      int
}

// NewStepExecutor creates a new step executor
func NewStepExecutor(cfg ExecutorConfig) (StepExecutor, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.DefaultTimeout < 0 {
		return nil, fmt.Errorf("default timeout cannot be negative")
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = DefaultServiceTimeout
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCommandBuilder
	}
	return &stepExecutor{
		log:            cfg.Log,
		fs:             cfg.Fs,
		defaultTimeout: cfg.DefaultTimeout,
		cmdBuilder:     cfg.CmdBuilder,
		tailBytes:      cfg.TailBytes,
	}, nil
}

func (e *stepExecutor) Execute(ctx context.Context, step ecosystem.Step) (*types.RawExecution, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	raw := &types.RawExecution{Label: step.Label, Command: step.String(), ExitCode: -1}
	if step.Command == "" {
		return raw, fmt.Errorf("step %q has no command", step.Label)
	}
	if err := e.prepareDirs(step); err != nil {
		return raw, err
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd, cleanup := e.cmdBuilder(runCtx, step.Command, step.Args...)
	defer cleanup()
	cmd.Dir = step.Dir
	cmd.Env = telemetry.InstrumentEnvironment(ctx, append(os.Environ(), step.Env...))

	stdoutTail := newTailBuffer(e.tailBytes)
	stderrTail := newTailBuffer(e.tailBytes)
	cmd.Stdout = stdoutTail
	cmd.Stderr = stderrTail

	e.log.Debug("Running step command", "dir", step.Dir, "role", step.Role, "command", raw.Command, "timeout", timeout)
	startTime := time.Now()
	runErr := cmd.Run()
	raw.Duration = time.Since(startTime)
	raw.Stdout = stdoutTail.String()
	raw.Stderr = stderrTail.String()
	if stdoutTail.Truncated() {
		e.log.Debug("Step output truncated", "command", raw.Command, "totalBytes", stdoutTail.TotalBytes())
	}
	if cmd.ProcessState != nil {
		raw.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return raw, fmt.Errorf("cancelled after %s: %w", raw.Duration.Round(time.Millisecond), context.Cause(ctx))
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		raw.TimedOut = true
		e.collectReports(step, raw)
		return raw, nil
	}

	if runErr != nil {
		exitErr := &exec.ExitError{}
		switch {
		case errors.As(runErr, &exitErr):
			raw.ExitCode = exitErr.ExitCode()
		case errors.Is(runErr, exec.ErrWaitDelay):
			// The process exited but something it spawned still held the
			// output pipes open.
			e.log.Warn("Step left processes holding its output open", "command", raw.Command)
		default:
			return raw, fmt.Errorf("failed to run: %w", runErr)
		}
	}

	e.collectReports(step, raw)
	return raw, nil
}

// prepareDirs clears stale output so it is never read as this run's.
func (e *stepExecutor) prepareDirs(step ecosystem.Step) error {
	for _, dir := range step.CleanDirs {
		if err := e.fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
	}
	for _, dir := range step.MakeDirs {
		if err := e.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// collectReports reads the files matching the step's report globs. Reports
// that cannot be read are skipped; parsing falls back to console output.
func (e *stepExecutor) collectReports(step ecosystem.Step, raw *types.RawExecution) {
	if step.Role != ecosystem.RoleTest || len(step.ReportGlobs) == 0 {
		return
	}
	for _, pattern := range step.ReportGlobs {
		matches, err := afero.Glob(e.fs, filepath.Join(step.Dir, pattern))
		if err != nil {
			e.log.Warn("Invalid report pattern", "pattern", pattern, "err", err)
			continue
		}
		for _, path := range matches {
			data, err := afero.ReadFile(e.fs, path)
			if err != nil {
				e.log.Warn("Failed to read report", "path", path, "err", err)
				continue
			}
			rel, err := filepath.Rel(step.Dir, path)
			if err != nil {
				rel = path
			}
			if raw.Reports == nil {
				raw.Reports = make(map[string][]byte)
			}
			raw.Reports[filepath.ToSlash(rel)] = data
		}
	}
	e.log.Debug("Collected reports", "command", raw.Command, "count", len(raw.Reports))
}
