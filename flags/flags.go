package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

const EnvVarPrefix = "WEATHERTOP"

var (
	Ecosystem = &cli.StringFlag{
		Name:     "ecosystem",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "ECOSYSTEM"),
		Usage:    fmt.Sprintf("Ecosystem to test (one of: %s)", types.EcosystemNames()),
		Action: func(_ *cli.Context, v string) error {
			if _, err := types.ParseEcosystem(v); err != nil {
				return err
			}
			return nil
		},
	}
	RepoURL = &cli.StringFlag{
		Name:    "repo-url",
		Value:   "https://github.com/awsdocs/aws-doc-sdk-examples.git",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPO_URL"),
		Usage:   "Git URL of the example repository",
	}
	CloneDir = &cli.StringFlag{
		Name:    "clone-dir",
		Value:   "aws-doc-sdk-examples",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CLONE_DIR"),
		Usage:   "Directory the example repository is cloned into",
	}
	SkipClone = &cli.BoolFlag{
		Name:    "skip-clone",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_CLONE"),
		Usage:   "Reuse an existing checkout in --clone-dir instead of cloning",
	}
	ServiceRoot = &cli.StringFlag{
		Name:    "service-root",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVICE_ROOT"),
		Usage:   "Service root relative to the clone. Defaults to the ecosystem's root",
	}
	Exclude = &cli.StringSliceFlag{
		Name:    "exclude",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXCLUDE"),
		Usage:   "Additional directory names to skip during discovery",
	}
	Overrides = &cli.StringFlag{
		Name:    "overrides",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OVERRIDES"),
		Usage:   "Path to a YAML file of per-ecosystem overrides",
	}
	Concurrency = &cli.IntFlag{
		Name:    "concurrency",
		Value:   1,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONCURRENCY"),
		Usage:   "Number of services tested at once",
	}
	ServiceTimeout = &cli.DurationFlag{
		Name:    "service-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVICE_TIMEOUT"),
		Usage:   "Timeout for each native step (e.g. '10m'). 0 uses the ecosystem default",
	}
	RunTimeout = &cli.DurationFlag{
		Name:    "run-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_TIMEOUT"),
		Usage:   "Deadline for a whole run. 0 means no deadline",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '24h'). Set to 0 or omit for run-once mode.",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory the JSON report is written to",
	}
	S3Bucket = &cli.StringFlag{
		Name:    "s3-bucket",
		Value:   "weathertop2",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "S3_BUCKET"),
		Usage:   "Bucket the JSON report is uploaded to",
	}
	S3Prefix = &cli.StringFlag{
		Name:    "s3-prefix",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "S3_PREFIX"),
		Usage:   "Key prefix for uploaded reports",
	}
	SkipUpload = &cli.BoolFlag{
		Name:    "skip-upload",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_UPLOAD"),
		Usage:   "Write the report locally without uploading it",
	}
	FailOnTestFailure = &cli.BoolFlag{
		Name:    "fail-on-test-failure",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ON_TEST_FAILURE"),
		Usage:   "Exit with code 1 when any test failed (run-once mode)",
	}
	CMakePrefixPath = &cli.StringFlag{
		Name:    "cmake-prefix-path",
		Value:   "/usr/local",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CMAKE_PREFIX_PATH"),
		Usage:   "Install prefix of the C++ SDK",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "0.0.0.0:8080",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the /healthz endpoint",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory for per-step output logs. Empty disables them",
	}
)

var requiredFlags = []cli.Flag{
	Ecosystem,
}

var optionalFlags = []cli.Flag{
	RepoURL,
	CloneDir,
	SkipClone,
	ServiceRoot,
	Exclude,
	Overrides,
	Concurrency,
	ServiceTimeout,
	RunTimeout,
	RunInterval,
	OutputDir,
	S3Bucket,
	S3Prefix,
	SkipUpload,
	FailOnTestFailure,
	CMakePrefixPath,
	HealthzAddr,
	LogDir,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
