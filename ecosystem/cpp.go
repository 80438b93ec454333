package ecosystem

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// DefaultCMakePrefixPath is where the SDK is installed on the test hosts.
const DefaultCMakePrefixPath = "/usr/local"

type cppStrategy struct {
	profile
	log        log.Logger
	prefixPath string
	jobs       int
}

func newCPP(opts Options, lgr log.Logger) Strategy {
	s := &cppStrategy{
		profile:    profile{id: types.EcosystemCPP, tool: "cpp", prefix: "cpp", root: "cpp/example_code"},
		log:        lgr,
		prefixPath: opts.CMakePrefixPath,
		jobs:       opts.BuildJobs,
	}
	if s.prefixPath == "" {
		s.prefixPath = DefaultCMakePrefixPath
	}
	if s.jobs <= 0 {
		s.jobs = runtime.NumCPU()
	}
	return s
}

// IsService accepts every directory under the root.
func (s *cppStrategy) IsService(fsys afero.Fs, dir string) bool {
	return isDir(fsys, dir)
}

func (s *cppStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	return isDir(fsys, filepath.Join(dir, "tests")), nil
}

// Plan configures a fresh out-of-tree build under tests/build.
func (s *cppStrategy) Plan(_ afero.Fs, unit types.ServiceUnit) (Plan, error) {
	build := filepath.Join(unit.Path, "tests", "build")
	return Plan{Steps: []Step{
		{
			Role:      RoleBuild,
			Label:     "cmake",
			Dir:       build,
			Command:   "cmake",
			Args:      []string{"..", "-DCMAKE_PREFIX_PATH=" + s.prefixPath, fmt.Sprintf("-DCMAKE_INSTALL_RPATH=%s/lib", s.prefixPath)},
			CleanDirs: []string{build},
			MakeDirs:  []string{build},
		},
		{Role: RoleBuild, Label: "make", Dir: build, Command: "make", Args: []string{"-j" + strconv.Itoa(s.jobs)}},
		{Role: RoleTest, Label: "ctest", Dir: build, Command: "ctest", Args: []string{"--output-on-failure"}},
	}}, nil
}

func (s *cppStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw == nil {
		return types.ParseResult{}
	}
	return parser.ParseCTest(raw.Combined(), unit)
}
