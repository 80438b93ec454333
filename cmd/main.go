package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/weathertop"
	"github.com/ethereum-optimism/infra/weathertop/exitcodes"
	"github.com/ethereum-optimism/infra/weathertop/flags"
	"github.com/ethereum-optimism/infra/weathertop/service"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "weathertop"
	app.Usage = "Multi-ecosystem test result aggregator"
	app.Description = "weathertop runs the tests of every service in an SDK example repository and publishes one aggregated report"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCodeFor(err)))
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitCodeFor maps run errors to process exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case weathertop.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		// RuntimeError and anything unclassified
		return exitcodes.RuntimeErr
	}
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := weathertop.NewConfig(ctx, log)
	if err != nil {
		return nil, weathertop.NewRuntimeError("", "", fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	svc := service.New(cfg.HealthzAddr, cfg.MetricsAddr)
	svc.Start(ctx.Context)
	go func() {
		<-ctx.Context.Done()
		svc.Shutdown()
	}()

	w, err := weathertop.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, weathertop.NewRuntimeError(cfg.Ecosystem, "", fmt.Errorf("failed to create weathertop: %w", err))
	}
	svc.Healthz.SetReportSource(w.LastReport)
	return w, nil
}
