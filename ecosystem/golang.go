package ecosystem

import (
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

type goStrategy struct {
	profile
	log log.Logger
}

func newGo(_ Options, lgr log.Logger) Strategy {
	return &goStrategy{
		profile: profile{id: types.EcosystemGo, tool: "go", prefix: "gov2", root: "gov2"},
		log:     lgr,
	}
}

// IsService accepts directories whose go.mod declares a module path.
func (s *goStrategy) IsService(fsys afero.Fs, dir string) bool {
	path := filepath.Join(dir, "go.mod")
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return false
	}
	mf, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		s.log.Debug("Ignoring unreadable go.mod", "path", path, "err", err)
		return false
	}
	return mf.Module != nil && mf.Module.Mod.Path != ""
}

func (s *goStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	return anyFile(fsys, dir, func(path string) (bool, error) {
		if !strings.HasSuffix(path, "_test.go") {
			return false, nil
		}
		return fileContains(fsys, path, []byte("func Test"))
	})
}

func (s *goStrategy) Plan(_ afero.Fs, unit types.ServiceUnit) (Plan, error) {
	return Plan{Steps: []Step{
		{Role: RoleSetup, Label: "go mod download", Dir: unit.Path, Command: "go", Args: []string{"mod", "download"}},
		{Role: RoleTest, Label: "go test", Dir: unit.Path, Command: "go", Args: []string{"test", "-v", "./..."}},
	}}, nil
}

func (s *goStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParseGoTest(raw.Combined(), unit)
}
