package ecosystem

import (
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

const gradleTimeout = 10 * time.Minute

type kotlinStrategy struct {
	profile
	log log.Logger
}

func newKotlin(_ Options, lgr log.Logger) Strategy {
	return &kotlinStrategy{
		profile: profile{
			id:      types.EcosystemKotlin,
			tool:    "kotlin",
			prefix:  "kotlin",
			root:    "kotlin/services",
			exclude: []string{"s3"},
		},
		log: lgr,
	}
}

func (s *kotlinStrategy) IsService(fsys afero.Fs, dir string) bool {
	return exists(fsys, filepath.Join(dir, "build.gradle.kts")) || exists(fsys, filepath.Join(dir, "build.gradle"))
}

func (s *kotlinStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	for _, lang := range []string{"kotlin", "java"} {
		found, err := anyFile(fsys, filepath.Join(dir, "src", "test", lang), func(path string) (bool, error) {
			return hasSuffix(".kt", ".java")(path), nil
		})
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// Plan prefers the service's Gradle wrapper. It is run through sh so a
// checkout without the executable bit still works.
func (s *kotlinStrategy) Plan(fsys afero.Fs, unit types.ServiceUnit) (Plan, error) {
	step := Step{
		Role:        RoleTest,
		Label:       "gradle test",
		Dir:         unit.Path,
		Command:     "gradle",
		Args:        []string{"test", "--no-daemon", "--console=plain"},
		Timeout:     gradleTimeout,
		CleanDirs:   []string{filepath.Join(unit.Path, "build", "test-results", "test")},
		ReportGlobs: []string{"build/test-results/test/*.xml"},
	}
	if exists(fsys, filepath.Join(unit.Path, "gradlew")) {
		step.Command = "sh"
		step.Args = []string{"gradlew", "test", "--console=plain"}
	}
	return Plan{Steps: []Step{step}}, nil
}

func (s *kotlinStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	return preferReports(s.log, raw, unit, parser.ParseJUnitReports, parser.ParseGradleConsole)
}
