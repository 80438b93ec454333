package weathertop

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/weathertop/flags"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// Config holds the application configuration
type Config struct {
	Ecosystem         types.Ecosystem
	RepoURL           string
	CloneDir          string // Absolute path of the example repository checkout
	SkipClone         bool   // Reuse CloneDir as is
	ServiceRoot       string // Empty uses the ecosystem default; relative paths are under CloneDir
	Exclude           []string
	OverridesFile     string
	Concurrency       int
	ServiceTimeout    time.Duration // Per native step; 0 uses the ecosystem default
	RunTimeout        time.Duration // 0 means no deadline
	RunInterval       time.Duration // Interval between runs
	RunOnce           bool          // Exit after one run
	OutputDir         string
	S3Bucket          string
	S3Prefix          string
	SkipUpload        bool
	FailOnTestFailure bool
	CMakePrefixPath   string
	HealthzAddr       string
	MetricsAddr       string // Empty when metrics are disabled
	LogDir            string // Empty disables per-step logs
	Log               log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	eco, err := types.ParseEcosystem(ctx.String(flags.Ecosystem.Name))
	if err != nil {
		return nil, err
	}

	concurrency := ctx.Int(flags.Concurrency.Name)
	if concurrency < 0 {
		return nil, fmt.Errorf("concurrency cannot be negative: %d", concurrency)
	}
	for _, d := range []*cli.DurationFlag{flags.ServiceTimeout, flags.RunTimeout, flags.RunInterval} {
		if ctx.Duration(d.Name) < 0 {
			return nil, fmt.Errorf("%s cannot be negative", d.Name)
		}
	}

	cloneDir := ctx.String(flags.CloneDir.Name)
	if cloneDir == "" {
		return nil, errors.New("clone directory is required")
	}
	if !ctx.Bool(flags.SkipClone.Name) && ctx.String(flags.RepoURL.Name) == "" {
		return nil, errors.New("repository URL is required unless --skip-clone is set")
	}
	if !ctx.Bool(flags.SkipUpload.Name) && ctx.String(flags.S3Bucket.Name) == "" {
		return nil, errors.New("s3 bucket is required unless --skip-upload is set")
	}

	absCloneDir, err := absPath(cloneDir)
	if err != nil {
		return nil, err
	}
	outputDir, err := absPath(ctx.String(flags.OutputDir.Name))
	if err != nil {
		return nil, err
	}
	overrides, err := absPath(ctx.String(flags.Overrides.Name))
	if err != nil {
		return nil, err
	}
	logDir, err := absPath(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, err
	}

	var metricsAddr string
	if mcfg := opmetrics.ReadCLIConfig(ctx); mcfg.Enabled {
		metricsAddr = net.JoinHostPort(mcfg.ListenAddr, strconv.Itoa(mcfg.ListenPort))
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		Ecosystem:         eco,
		RepoURL:           ctx.String(flags.RepoURL.Name),
		CloneDir:          absCloneDir,
		SkipClone:         ctx.Bool(flags.SkipClone.Name),
		ServiceRoot:       ctx.String(flags.ServiceRoot.Name),
		Exclude:           ctx.StringSlice(flags.Exclude.Name),
		OverridesFile:     overrides,
		Concurrency:       concurrency,
		ServiceTimeout:    ctx.Duration(flags.ServiceTimeout.Name),
		RunTimeout:        ctx.Duration(flags.RunTimeout.Name),
		RunInterval:       runInterval,
		RunOnce:           runInterval == 0,
		OutputDir:         outputDir,
		S3Bucket:          ctx.String(flags.S3Bucket.Name),
		S3Prefix:          ctx.String(flags.S3Prefix.Name),
		SkipUpload:        ctx.Bool(flags.SkipUpload.Name),
		FailOnTestFailure: ctx.Bool(flags.FailOnTestFailure.Name),
		CMakePrefixPath:   ctx.String(flags.CMakePrefixPath.Name),
		HealthzAddr:       ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:       metricsAddr,
		LogDir:            logDir,
		Log:               log,
	}, nil
}

// absPath resolves p, leaving an empty path empty.
func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for '%s': %w", p, err)
	}
	return abs, nil
}

// serviceRoot returns the absolute directory discovery starts from.
func (c *Config) serviceRoot(defaultRoot string) string {
	root := c.ServiceRoot
	if root == "" {
		root = defaultRoot
	}
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(c.CloneDir, root)
}
