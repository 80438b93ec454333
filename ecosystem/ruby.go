package ecosystem

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

var rubyTestFileRe = regexp.MustCompile(`(^|/)tests/(.+/)?test_[^/]*\.rb$`)

type rubyStrategy struct {
	profile
	log log.Logger
}

func newRuby(_ Options, lgr log.Logger) Strategy {
	return &rubyStrategy{
		profile: profile{id: types.EcosystemRuby, tool: "ruby", prefix: "ruby", root: "ruby/example_code"},
		log:     lgr,
	}
}

// Prepare installs the bundle declared next to the example root.
func (s *rubyStrategy) Prepare(fsys afero.Fs, root string) []Step {
	dir := filepath.Dir(root)
	if !exists(fsys, filepath.Join(dir, "Gemfile")) {
		return nil
	}
	return []Step{{Role: RoleSetup, Label: "bundle install", Dir: dir, Command: "bundle", Args: []string{"install"}}}
}

// IsService accepts every directory under the root.
func (s *rubyStrategy) IsService(fsys afero.Fs, dir string) bool {
	return isDir(fsys, dir)
}

func (s *rubyStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	files, err := s.testFiles(fsys, dir)
	return len(files) > 0, err
}

func (s *rubyStrategy) testFiles(fsys afero.Fs, dir string) ([]string, error) {
	return findFiles(fsys, dir, func(path string) bool {
		rel, err := filepath.Rel(dir, path)
		return err == nil && rubyTestFileRe.MatchString(filepath.ToSlash(rel))
	})
}

func (s *rubyStrategy) Plan(fsys afero.Fs, unit types.ServiceUnit) (Plan, error) {
	files, err := s.testFiles(fsys, unit.Path)
	if err != nil {
		return Plan{}, err
	}
	if len(files) == 0 {
		return Plan{}, fmt.Errorf("no test files under %s", unit.Path)
	}
	args := []string{"exec", "rspec", "--format", "documentation"}
	for _, f := range files {
		rel, err := filepath.Rel(unit.Path, f)
		if err != nil {
			rel = f
		}
		args = append(args, rel)
	}
	rubylib := unit.Path
	if existing := os.Getenv("RUBYLIB"); existing != "" {
		rubylib += string(os.PathListSeparator) + existing
	}
	return Plan{Steps: []Step{{
		Role:    RoleTest,
		Label:   "rspec",
		Dir:     unit.Path,
		Command: "bundle",
		Args:    args,
		Env:     []string{"RUBYLIB=" + rubylib},
	}}}, nil
}

func (s *rubyStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParseRSpec(raw.Combined(), unit)
}
