package ecosystem

import (
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

// The S3 examples need fixtures the test account does not have.
const javaExcludedTests = "com.example.s3.*"

type javaStrategy struct {
	profile
	log log.Logger
}

func newJava(_ Options, lgr log.Logger) Strategy {
	return &javaStrategy{
		profile: profile{
			id:     types.EcosystemJava,
			tool:   "maven",
			prefix: "java",
			root:   "javav2/example_code",
			exclude: []string{
				"cloudfront", "ecr", "emr", "lookoutvision",
				"support", "timestream", "transcribe",
			},
		},
		log: lgr,
	}
}

func (s *javaStrategy) IsService(fsys afero.Fs, dir string) bool {
	return exists(fsys, filepath.Join(dir, "pom.xml"))
}

func (s *javaStrategy) HasTests(fsys afero.Fs, dir string) (bool, error) {
	skip := filepath.FromSlash("com/example/s3")
	return anyFile(fsys, dir, func(path string) (bool, error) {
		if !strings.HasSuffix(path, ".java") || strings.Contains(path, skip) {
			return false, nil
		}
		return fileContains(fsys, path, []byte("@Test"))
	})
}

func (s *javaStrategy) Plan(_ afero.Fs, unit types.ServiceUnit) (Plan, error) {
	reports := filepath.Join(unit.Path, "target", "surefire-reports")
	return Plan{Steps: []Step{{
		Role:        RoleTest,
		Label:       "mvn test",
		Dir:         unit.Path,
		Command:     "mvn",
		Args:        []string{"test", "-DtrimStackTrace=false", "-Dtest=!" + javaExcludedTests},
		CleanDirs:   []string{reports},
		ReportGlobs: []string{"target/surefire-reports/TEST-*.xml"},
	}}}, nil
}

func (s *javaStrategy) Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	return preferReports(s.log, raw, unit, parser.ParseJUnitReports, parser.ParseMavenConsole)
}
