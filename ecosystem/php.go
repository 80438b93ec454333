package ecosystem

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

type phpStrategy struct {
	profile
	log log.Logger
}

func newPHP(_ Options, lgr log.Logger) Strategy {
	return &phpStrategy{
		profile: profile{
			id:      types.EcosystemPHP,
			tool:    "phpunit",
			prefix:  "php",
			root:    "php/example_code",
			exclude: []string{"bedrock-agent-runtime", "vendor"},
		},
		log: lgr,
	}
}

// Prepare installs the shared composer dependencies once for the run.
func (s *phpStrategy) Prepare(fsys afero.Fs, root string) []Step {
	if !exists(fsys, filepath.Join(root, "composer.json")) {
		return nil
	}
	return []Step{{
		Role:    RoleSetup,
		Label:   "composer install",
		Dir:     root,
		Command: "composer",
		Args:    []string{"install", "--no-interaction", "--prefer-dist", "--no-progress"},
	}}
}

// IsService accepts every directory under the root.
func (s *phpStrategy) IsService(fsys afero.Fs, dir string) bool {
	return isDir(fsys, dir)
}

func (s *phpStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	files, err := s.testFiles(fsys, dir)
	return len(files) > 0, err
}

func (s *phpStrategy) testFiles(fsys afero.Fs, dir string) ([]string, error) {
	tests := filepath.Join(dir, "tests")
	if !isDir(fsys, tests) {
		return nil, nil
	}
	return listFiles(fsys, tests, func(name string) bool { return strings.HasSuffix(name, ".php") })
}

// Plan runs each test file on its own from the shared root, so one fatal
// file cannot hide the results of the others.
func (s *phpStrategy) Plan(fsys afero.Fs, unit types.ServiceUnit) (Plan, error) {
	files, err := s.testFiles(fsys, unit.Path)
	if err != nil {
		return Plan{}, err
	}
	if len(files) == 0 {
		return Plan{}, fmt.Errorf("no test files under %s", filepath.Join(unit.Path, "tests"))
	}
	root := unit.Root
	if root == "" {
		root = filepath.Dir(unit.Path)
	}
	bin := filepath.Join(root, "vendor", "bin", "phpunit")
	if !exists(fsys, bin) {
		bin = "phpunit"
	}
	steps := make([]Step, 0, len(files))
	for _, f := range files {
		steps = append(steps, Step{
			Role:    RoleTest,
			Label:   filepath.Base(f),
			Dir:     root,
			Command: bin,
			Args:    []string{"--colors=never", "--bootstrap", filepath.Join(root, "vendor", "autoload.php"), f},
		})
	}
	return Plan{Steps: steps}, nil
}

// Parse attributes failures to the test file named by the step label.
func (s *phpStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParsePHPUnit(raw.Combined(), raw.Label, unit)
}
