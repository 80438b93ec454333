package weathertop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/aggregator"
	"github.com/ethereum-optimism/infra/weathertop/discovery"
	"github.com/ethereum-optimism/infra/weathertop/ecosystem"
	"github.com/ethereum-optimism/infra/weathertop/logging"
	"github.com/ethereum-optimism/infra/weathertop/metrics"
	"github.com/ethereum-optimism/infra/weathertop/reporting"
	"github.com/ethereum-optimism/infra/weathertop/runner"
	"github.com/ethereum-optimism/infra/weathertop/source"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// Pipeline performs one complete run: clone, discover, test every service,
// aggregate and publish.
type Pipeline interface {
	Run(ctx context.Context) (*types.RunReport, error)
}

type pipeline struct {
	log       log.Logger
	fs        afero.Fs
	config    *Config
	strategy  ecosystem.Strategy
	cloner    source.Cloner
	executor  runner.StepExecutor
	publisher *reporting.Publisher
	reporter  MetricsReporter
	out       io.Writer
	newRunID  func() string
}

// NewPipeline wires the run stages for the configured ecosystem.
func NewPipeline(ctx context.Context, config *Config) (Pipeline, error) {
	return newPipeline(ctx, config, afero.NewOsFs())
}

func newPipeline(ctx context.Context, config *Config, fs afero.Fs) (*pipeline, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
		config.Log.Error("No logger provided, using default")
	}
	lgr := config.Log

	reg, err := ecosystem.NewRegistry(ecosystem.Config{
		Log:           lgr,
		Fs:            fs,
		OverridesFile: config.OverridesFile,
		Options:       ecosystem.Options{CMakePrefixPath: config.CMakePrefixPath},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	strategy, err := reg.Get(config.Ecosystem)
	if err != nil {
		return nil, fmt.Errorf("failed to load ecosystem: %w", err)
	}

	executor, err := runner.NewStepExecutor(runner.ExecutorConfig{
		Log:            lgr,
		Fs:             fs,
		DefaultTimeout: config.ServiceTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create step executor: %w", err)
	}

	var uploader reporting.Uploader
	if !config.SkipUpload {
		s3Uploader, err := reporting.NewS3Uploader(ctx, lgr, fs, config.S3Bucket)
		if err != nil {
			lgr.Warn("Report upload disabled, AWS configuration unavailable", "bucket", config.S3Bucket, "err", err)
			metrics.RecordUploadError(string(config.Ecosystem))
		} else {
			uploader = s3Uploader
		}
	}
	sink := reporting.NewJSONSink(lgr, fs, config.OutputDir, strategy.ReportPrefix())

	return &pipeline{
		log:       lgr,
		fs:        fs,
		config:    config,
		strategy:  strategy,
		cloner:    source.NewGitCloner(lgr, 1),
		executor:  executor,
		publisher: reporting.NewPublisher(lgr, sink, uploader, config.S3Prefix, string(config.Ecosystem)),
		reporter:  NewDefaultMetricsReporter(config.Ecosystem),
		out:       os.Stdout,
		newRunID:  uuid.NewString,
	}, nil
}

func (p *pipeline) Run(ctx context.Context) (*types.RunReport, error) {
	start := time.Now()
	runID := p.newRunID()
	lgr := p.log.New("run_id", runID)

	runCtx := ctx
	if p.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.config.RunTimeout)
		defer cancel()
	}

	if p.config.SkipClone {
		lgr.Info("Using existing checkout", "dir", p.config.CloneDir)
	} else {
		commit, err := p.cloner.Clone(runCtx, p.config.RepoURL, p.config.CloneDir)
		if err != nil {
			return nil, NewRuntimeError(p.config.Ecosystem, runID, fmt.Errorf("failed to clone %s: %w", p.config.RepoURL, err))
		}
		lgr.Info("Cloned example repository", "url", p.config.RepoURL, "commit", commit)
	}

	root := p.config.serviceRoot(p.strategy.DefaultRoot())
	units, err := p.discover(lgr, root)
	if err != nil {
		return nil, NewRuntimeError(p.config.Ecosystem, runID, err)
	}
	lgr.Info("Discovered services", "ecosystem", p.strategy.ID(), "root", root, "count", len(units))

	var fileLogger *logging.FileLogger
	if p.config.LogDir != "" {
		fileLogger, err = logging.NewFileLogger(p.fs, p.config.LogDir, runID)
		if err != nil {
			lgr.Warn("Step logs disabled", "dir", p.config.LogDir, "err", err)
			fileLogger = nil
		}
	}

	svcRunner, err := runner.NewServiceRunner(runner.Config{
		Log:        lgr,
		Fs:         p.fs,
		Strategy:   p.strategy,
		Executor:   p.executor,
		FileLogger: fileLogger,
	})
	if err != nil {
		return nil, NewRuntimeError(p.config.Ecosystem, runID, fmt.Errorf("failed to create service runner: %w", err))
	}
	svcRunner.Prepare(runCtx, root)

	agg := aggregator.New(p.strategy.Tool())
	agg.Start()
	notRun := runner.NewParallelExecutor(svcRunner, p.config.Concurrency, lgr).Execute(runCtx, units, agg.Add)
	if len(notRun) > 0 {
		lgr.Warn("Run stopped before every service was dispatched", "notRun", len(notRun), "err", runCtx.Err())
		for _, unit := range notRun {
			lgr.Debug("Service not run", "service", unit.Name, "order", unit.Order)
		}
	}
	report := agg.Finalize(runID)

	// The run deadline does not apply to publishing.
	path, err := p.publisher.Publish(ctx, report)
	if err != nil {
		return report, NewRuntimeError(p.config.Ecosystem, runID, err)
	}

	reporting.PrintSummaryTable(p.out, report)
	if fileLogger != nil {
		if err := fileLogger.LogSummary(reporting.SummaryTable(report)); err != nil {
			lgr.Warn("Failed to write summary log", "err", err)
		}
	}
	if data, err := json.Marshal(report); err == nil {
		lgr.Debug("Run report", "json", string(data))
	}

	p.reporter.ReportResults(report, time.Since(start))
	summary := report.Results.Summary
	lgr.Info("Run completed",
		"report", path,
		"services", summary.Services,
		"tests", summary.Tests,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"passRate", summary.PassRateDisplay())
	return report, nil
}

func (p *pipeline) discover(lgr log.Logger, root string) ([]types.ServiceUnit, error) {
	exclude := append(p.strategy.DefaultExclusions(), p.config.Exclude...)
	d, err := discovery.NewDiscoverer(discovery.Config{
		Log:       lgr,
		Fs:        p.fs,
		Root:      root,
		Exclude:   exclude,
		MaxDepth:  p.strategy.DiscoveryDepth(),
		IsService: p.strategy.IsService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create discoverer: %w", err)
	}
	return d.Discover()
}
