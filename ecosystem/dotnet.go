package ecosystem

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

var integrationTraitRe = regexp.MustCompile(`Trait\(\s*"Category"\s*,\s*"Integration"\s*\)`)

type dotnetStrategy struct {
	profile
	log log.Logger
}

func newDotNet(_ Options, lgr log.Logger) Strategy {
	return &dotnetStrategy{
		profile: profile{id: types.EcosystemDotNet, tool: "dotnet", prefix: "dotnetv4", root: "dotnetv4"},
		log:     lgr,
	}
}

// IsService accepts every directory under the root.
func (s *dotnetStrategy) IsService(fsys afero.Fs, dir string) bool {
	return isDir(fsys, dir)
}

// HasTests requires both an integration-tagged test and a test project.
func (s *dotnetStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	tagged, err := anyFile(fsys, dir, func(path string) (bool, error) {
		if !strings.HasSuffix(path, ".cs") {
			return false, nil
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return false, err
		}
		return integrationTraitRe.Match(data), nil
	})
	if err != nil || !tagged {
		return false, err
	}
	proj, err := s.testProject(fsys, dir)
	return proj != "", err
}

func (s *dotnetStrategy) testProject(fsys afero.Fs, dir string) (string, error) {
	projects, err := findFiles(fsys, dir, func(path string) bool {
		rel, err := filepath.Rel(dir, path)
		return err == nil && strings.HasSuffix(path, ".csproj") && strings.Contains(rel, "Test")
	})
	if err != nil || len(projects) == 0 {
		return "", err
	}
	return projects[0], nil
}

func (s *dotnetStrategy) Plan(fsys afero.Fs, unit types.ServiceUnit) (Plan, error) {
	proj, err := s.testProject(fsys, unit.Path)
	if err != nil {
		return Plan{}, err
	}
	if proj == "" {
		return Plan{}, fmt.Errorf("no test project under %s", unit.Path)
	}
	projDir := filepath.Dir(proj)
	return Plan{Steps: []Step{{
		Role:    RoleTest,
		Label:   "dotnet test",
		Dir:     projDir,
		Command: "dotnet",
		Args: []string{
			"test", proj,
			"--filter", "Category=Integration",
			"--logger", fmt.Sprintf("trx;LogFileName=dotnet_results_%d.trx", unit.Order),
			"--verbosity", "minimal",
		},
		CleanDirs:   []string{filepath.Join(projDir, "TestResults")},
		ReportGlobs: []string{"TestResults/*.trx"},
	}}}, nil
}

func (s *dotnetStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	return preferReports(s.log, raw, unit, parser.ParseTRXReports, parser.ParseDotnetConsole)
}
