package ecosystem

import (
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

type javascriptStrategy struct {
	profile
	log log.Logger
}

func newJavaScript(_ Options, lgr log.Logger) Strategy {
	return &javascriptStrategy{
		profile: profile{
			id:      types.EcosystemJavaScript,
			tool:    "javascript",
			prefix:  "javascriptv3",
			root:    "javascriptv3/example_code",
			exclude: []string{"node_modules"},
		},
		log: lgr,
	}
}

// IsService accepts every directory under the root.
func (s *javascriptStrategy) IsService(fsys afero.Fs, dir string) bool {
	return isDir(fsys, dir)
}

func (s *javascriptStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	return isDir(fsys, filepath.Join(dir, "tests")) || isDir(fsys, filepath.Join(dir, "test")), nil
}

func (s *javascriptStrategy) Plan(_ afero.Fs, unit types.ServiceUnit) (Plan, error) {
	return Plan{Steps: []Step{
		{Role: RoleSetup, Label: "npm install", Dir: unit.Path, Command: "npm", Args: []string{"install"}},
		{Role: RoleTest, Label: "vitest", Dir: unit.Path, Command: "npx", Args: []string{"vitest", "--run"}},
	}}, nil
}

func (s *javascriptStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParseVitest(raw.Combined(), unit)
}
