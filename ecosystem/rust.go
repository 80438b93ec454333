package ecosystem

import (
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

type rustStrategy struct {
	profile
	log log.Logger
}

func newRust(_ Options, lgr log.Logger) Strategy {
	return &rustStrategy{
		profile: profile{id: types.EcosystemRust, tool: "rust", prefix: "rustv1", root: "rustv1/examples"},
		log:     lgr,
	}
}

func (s *rustStrategy) IsService(fsys afero.Fs, dir string) bool {
	return exists(fsys, filepath.Join(dir, "Cargo.toml"))
}

func (s *rustStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	if nonEmptyDir(fsys, filepath.Join(dir, "tests")) {
		return true, nil
	}
	return anyFile(fsys, dir, func(path string) (bool, error) {
		if !strings.HasSuffix(path, ".rs") {
			return false, nil
		}
		return fileContains(fsys, path, []byte("#[test]"))
	})
}

// Plan cleans the target directory afterwards; example crates do not share
// one and the build output adds up across a full run.
func (s *rustStrategy) Plan(_ afero.Fs, unit types.ServiceUnit) (Plan, error) {
	return Plan{Steps: []Step{
		{Role: RoleBuild, Label: "cargo build", Dir: unit.Path, Command: "cargo", Args: []string{"build"}},
		{Role: RoleTest, Label: "cargo test", Dir: unit.Path, Command: "cargo", Args: []string{"test", "--quiet"}},
		{Role: RoleTeardown, Label: "cargo clean", Dir: unit.Path, Command: "cargo", Args: []string{"clean"}},
	}}, nil
}

func (s *rustStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParseCargo(raw.Combined(), unit)
}
