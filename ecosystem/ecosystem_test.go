package ecosystem

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/weathertop/parser"
	"github.com/ethereum-optimism/infra/weathertop/types"
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}

func strategy(t *testing.T, id types.Ecosystem) Strategy {
	t.Helper()
	r, err := NewRegistry(Config{Log: log.NewLogger(log.DiscardHandler()), Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	s, err := r.Get(id)
	require.NoError(t, err)
	return s
}

func TestRegistryCoversEveryEcosystem(t *testing.T) {
	prefixes := map[types.Ecosystem]string{
		types.EcosystemJava:       "java",
		types.EcosystemGo:         "gov2",
		types.EcosystemJavaScript: "javascriptv3",
		types.EcosystemKotlin:     "kotlin",
		types.EcosystemDotNet:     "dotnetv4",
		types.EcosystemPHP:        "php",
		types.EcosystemRuby:       "ruby",
		types.EcosystemRust:       "rustv1",
		types.EcosystemCPP:        "cpp",
	}
	for _, id := range types.AllEcosystems {
		t.Run(string(id), func(t *testing.T) {
			s := strategy(t, id)
			assert.Equal(t, id, s.ID())
			assert.Equal(t, prefixes[id], s.ReportPrefix())
			assert.NotEmpty(t, s.Tool())
			assert.NotEmpty(t, s.DefaultRoot())
			assert.Equal(t, 1, s.DiscoveryDepth())
		})
	}
}

func TestRegistryRejectsUnknownEcosystem(t *testing.T) {
	r, err := NewRegistry(Config{Log: log.NewLogger(log.DiscardHandler())})
	require.NoError(t, err)
	_, err = r.Get("cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}

func TestRegistryOverrides(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"/etc/overrides.yaml": `
ecosystems:
  java:
    root: java/custom
    exclude: [sns]
    timeout: 15m
    max_depth: 2
`})
	r, err := NewRegistry(Config{Log: log.NewLogger(log.DiscardHandler()), Fs: fsys, OverridesFile: "/etc/overrides.yaml"})
	require.NoError(t, err)

	s, err := r.Get(types.EcosystemJava)
	require.NoError(t, err)
	assert.Equal(t, "java/custom", s.DefaultRoot())
	assert.Contains(t, s.DefaultExclusions(), "sns")
	assert.Contains(t, s.DefaultExclusions(), "cloudfront")
	assert.Equal(t, 2, s.DiscoveryDepth())

	p, err := s.Plan(fsys, types.ServiceUnit{Name: "sqs", Path: "/repo/sqs", Order: 1})
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, 15*time.Minute, p.Steps[0].Timeout)

	other, err := r.Get(types.EcosystemGo)
	require.NoError(t, err)
	assert.Equal(t, "gov2", other.DefaultRoot())
}

func TestRegistryOverridesInvalid(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/bad-eco.yaml":   "ecosystems:\n  cobol:\n    root: x\n",
		"/bad-yaml.yaml":  "ecosystems: [",
		"/bad-depth.yaml": "ecosystems:\n  go:\n    max_depth: -1\n",
	})
	for _, path := range []string{"/bad-eco.yaml", "/bad-yaml.yaml", "/bad-depth.yaml", "/missing.yaml"} {
		_, err := NewRegistry(Config{Log: log.NewLogger(log.DiscardHandler()), Fs: fsys, OverridesFile: path})
		assert.Error(t, err, path)
	}
}

func TestHasTests(t *testing.T) {
	tests := []struct {
		name  string
		id    types.Ecosystem
		files map[string]string
		want  bool
	}{
		{
			name:  "java annotated test",
			id:    types.EcosystemJava,
			files: map[string]string{"/svc/src/test/java/SqsTest.java": "class SqsTest { @Test void send() {} }"},
			want:  true,
		},
		{
			name:  "java test only under excluded package",
			id:    types.EcosystemJava,
			files: map[string]string{"/svc/src/test/java/com/example/s3/S3Test.java": "@Test"},
			want:  false,
		},
		{
			name:  "go test function",
			id:    types.EcosystemGo,
			files: map[string]string{"/svc/actions/bucket_test.go": "package actions\nfunc TestBucket(t *testing.T) {}"},
			want:  true,
		},
		{
			name:  "go test file without tests",
			id:    types.EcosystemGo,
			files: map[string]string{"/svc/helpers_test.go": "package svc\nfunc helper() {}"},
			want:  false,
		},
		{
			name:  "javascript test dir",
			id:    types.EcosystemJavaScript,
			files: map[string]string{"/svc/test/a.test.js": ""},
			want:  true,
		},
		{
			name:  "kotlin test sources",
			id:    types.EcosystemKotlin,
			files: map[string]string{"/svc/src/test/kotlin/SnsTest.kt": ""},
			want:  true,
		},
		{
			name:  "kotlin main only",
			id:    types.EcosystemKotlin,
			files: map[string]string{"/svc/src/main/kotlin/Sns.kt": ""},
			want:  false,
		},
		{
			name: "dotnet integration trait and test project",
			id:   types.EcosystemDotNet,
			files: map[string]string{
				"/svc/Tests/SqsTests.cs":      `[Trait("Category", "Integration")]`,
				"/svc/Tests/SqsTests.csproj":  "<Project/>",
				"/svc/Actions/Actions.csproj": "<Project/>",
			},
			want: true,
		},
		{
			name:  "dotnet without integration trait",
			id:    types.EcosystemDotNet,
			files: map[string]string{"/svc/Tests/SqsTests.cs": `[Trait("Category", "Unit")]`, "/svc/Tests/SqsTests.csproj": ""},
			want:  false,
		},
		{
			name:  "php tests dir",
			id:    types.EcosystemPHP,
			files: map[string]string{"/svc/tests/SqsTest.php": "<?php"},
			want:  true,
		},
		{
			name:  "php empty tests dir",
			id:    types.EcosystemPHP,
			files: map[string]string{"/svc/tests/README.md": ""},
			want:  false,
		},
		{
			name:  "ruby nested test file",
			id:    types.EcosystemRuby,
			files: map[string]string{"/svc/scenarios/tests/test_scenario.rb": ""},
			want:  true,
		},
		{
			name:  "ruby spec outside tests",
			id:    types.EcosystemRuby,
			files: map[string]string{"/svc/test_helper.rb": ""},
			want:  false,
		},
		{
			name:  "rust tests dir",
			id:    types.EcosystemRust,
			files: map[string]string{"/svc/tests/integration.rs": ""},
			want:  true,
		},
		{
			name:  "rust inline test",
			id:    types.EcosystemRust,
			files: map[string]string{"/svc/src/lib.rs": "#[cfg(test)]\nmod t {\n#[test]\nfn ok() {}\n}"},
			want:  true,
		},
		{
			name:  "cpp tests dir",
			id:    types.EcosystemCPP,
			files: map[string]string{"/svc/tests/CMakeLists.txt": ""},
			want:  true,
		},
		{
			name:  "cpp without tests",
			id:    types.EcosystemCPP,
			files: map[string]string{"/svc/main.cpp": ""},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFiles(t, fsys, tt.files)
			got, err := strategy(t, tt.id).HasTests(fsys, "/svc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsService(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/java/pom.xml":            "<project/>",
		"/go/go.mod":               "module example.com/s3\n\ngo 1.22\n",
		"/go-broken/go.mod":        "this is not a go.mod {",
		"/kotlin/build.gradle.kts": "",
		"/rust/Cargo.toml":         "",
		"/plain/README.md":         "",
	})
	assert.True(t, strategy(t, types.EcosystemJava).IsService(fsys, "/java"))
	assert.False(t, strategy(t, types.EcosystemJava).IsService(fsys, "/plain"))
	assert.True(t, strategy(t, types.EcosystemGo).IsService(fsys, "/go"))
	assert.False(t, strategy(t, types.EcosystemGo).IsService(fsys, "/go-broken"))
	assert.False(t, strategy(t, types.EcosystemGo).IsService(fsys, "/plain"))
	assert.True(t, strategy(t, types.EcosystemKotlin).IsService(fsys, "/kotlin"))
	assert.True(t, strategy(t, types.EcosystemRust).IsService(fsys, "/rust"))
	assert.True(t, strategy(t, types.EcosystemPHP).IsService(fsys, "/plain"))
	assert.False(t, strategy(t, types.EcosystemPHP).IsService(fsys, "/java/pom.xml"))
}

func TestPlans(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/root/svc/gradlew":                    "#!/bin/sh",
		"/root/svc/Tests/SvcTests.csproj":      "",
		"/root/svc/tests/AlphaTest.php":        "",
		"/root/svc/tests/BetaTest.php":         "",
		"/root/svc/tests/test_basics.rb":       "",
		"/root/vendor/bin/phpunit":             "",
		"/root/svc/tests/CMakeLists.txt":       "",
		"/root/svc/tests/unit/test_nested.rb":  "",
		"/root/svc/src/test/kotlin/SvcTest.kt": "",
	})
	unit := types.ServiceUnit{Name: "svc", Path: "/root/svc", Root: "/root", Order: 4}

	roles := func(p Plan) []StepRole {
		var out []StepRole
		for _, s := range p.Steps {
			out = append(out, s.Role)
		}
		return out
	}

	t.Run("java", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemJava).Plan(fsys, unit)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, "mvn test -DtrimStackTrace=false -Dtest=!com.example.s3.*", p.Steps[0].String())
		assert.Equal(t, []string{"/root/svc/target/surefire-reports"}, p.Steps[0].CleanDirs)
	})

	t.Run("go", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemGo).Plan(fsys, unit)
		require.NoError(t, err)
		assert.Equal(t, []StepRole{RoleSetup, RoleTest}, roles(p))
		assert.Equal(t, "go test -v ./...", p.Steps[1].String())
	})

	t.Run("kotlin uses wrapper", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemKotlin).Plan(fsys, unit)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, "sh", p.Steps[0].Command)
		assert.Equal(t, gradleTimeout, p.Steps[0].Timeout)
		assert.Equal(t, []string{"build/test-results/test/*.xml"}, p.Steps[0].ReportGlobs)
	})

	t.Run("dotnet", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemDotNet).Plan(fsys, unit)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, "/root/svc/Tests", p.Steps[0].Dir)
		assert.Contains(t, p.Steps[0].Args, "trx;LogFileName=dotnet_results_4.trx")
		assert.Contains(t, p.Steps[0].Args, "Category=Integration")
	})

	t.Run("php runs each file", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemPHP).Plan(fsys, unit)
		require.NoError(t, err)
		require.Len(t, p.Steps, 2)
		assert.Equal(t, "AlphaTest.php", p.Steps[0].Label)
		assert.Equal(t, "BetaTest.php", p.Steps[1].Label)
		assert.Equal(t, "/root/vendor/bin/phpunit", p.Steps[0].Command)
		assert.Equal(t, "/root", p.Steps[0].Dir)
		assert.Equal(t, 2, p.TestSteps())
	})

	t.Run("php prepare without composer", func(t *testing.T) {
		assert.Empty(t, strategy(t, types.EcosystemPHP).Prepare(fsys, "/root"))
	})

	t.Run("ruby", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemRuby).Plan(fsys, unit)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, []string{
			"exec", "rspec", "--format", "documentation",
			"tests/test_basics.rb", "tests/unit/test_nested.rb",
		}, p.Steps[0].Args)
		require.NotEmpty(t, p.Steps[0].Env)
		assert.Contains(t, p.Steps[0].Env[0], "RUBYLIB=/root/svc")
	})

	t.Run("rust", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemRust).Plan(fsys, unit)
		require.NoError(t, err)
		assert.Equal(t, []StepRole{RoleBuild, RoleTest, RoleTeardown}, roles(p))
	})

	t.Run("cpp", func(t *testing.T) {
		p, err := strategy(t, types.EcosystemCPP).Plan(fsys, unit)
		require.NoError(t, err)
		assert.Equal(t, []StepRole{RoleBuild, RoleBuild, RoleTest}, roles(p))
		assert.Equal(t, "/root/svc/tests/build", p.Steps[0].Dir)
		assert.Equal(t, []string{"/root/svc/tests/build"}, p.Steps[0].MakeDirs)
		assert.Contains(t, p.Steps[0].Args, "-DCMAKE_PREFIX_PATH="+DefaultCMakePrefixPath)
	})
}

func TestPreferReports(t *testing.T) {
	unit := types.ServiceUnit{Name: "sns", Path: "/root/sns", Order: 2}
	s := strategy(t, types.EcosystemKotlin)

	report := `<testsuite name="SnsTest" tests="2" failures="1" errors="0" skipped="0">
  <testcase classname="SnsTest" name="ok"/>
  <testcase classname="SnsTest" name="bad"><failure message="boom"/></testcase>
</testsuite>`

	t.Run("report wins over console", func(t *testing.T) {
		raw := &types.RawExecution{
			ExitCode: 1,
			Stdout:   "20 tests completed, 5 failed",
			Reports:  map[string][]byte{"TEST-SnsTest.xml": []byte(report)},
		}
		res := s.Parse(raw, unit)
		assert.Equal(t, 1, res.Passed)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("malformed report next to a good one", func(t *testing.T) {
		raw := &types.RawExecution{
			ExitCode: 1,
			Reports: map[string][]byte{
				"TEST-SnsTest.xml": []byte(report),
				"TEST-Broken.xml":  []byte("<testsuite"),
			},
		}
		res := s.Parse(raw, unit)
		assert.Equal(t, 2, res.Failed)
		require.Len(t, res.Failures, 2)
		assert.Equal(t, types.ParseTestName, res.Failures[1].TestName)
	})

	t.Run("unreadable reports fall back to console", func(t *testing.T) {
		raw := &types.RawExecution{
			ExitCode: 1,
			Stdout:   "3 tests completed, 1 failed",
			Reports:  map[string][]byte{"TEST-Broken.xml": []byte("not xml")},
		}
		res := s.Parse(raw, unit)
		assert.Equal(t, 2, res.Passed)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("unreadable reports and empty console", func(t *testing.T) {
		for _, exit := range []int{0, 1} {
			raw := &types.RawExecution{
				ExitCode: exit,
				Reports:  map[string][]byte{"TEST-Broken.xml": []byte(`<testsuite tests="3"><testcase`)},
			}
			res := s.Parse(raw, unit)
			assert.Equal(t, 0, res.Passed)
			assert.Equal(t, 1, res.Failed)
			require.Len(t, res.Failures, 1)
			assert.Equal(t, types.ParseTestName, res.Failures[0].TestName)
			assert.Contains(t, res.Failures[0].Message, types.ParseFailureMessage)
			assert.Contains(t, res.Failures[0].Message, "TEST-Broken.xml")
		}
	})
}

func TestJavaTruncatedSurefireReport(t *testing.T) {
	unit := types.ServiceUnit{Name: "s3", Path: "/root/s3", Order: 1}
	raw := &types.RawExecution{
		Label:    "mvn test",
		ExitCode: 0,
		Reports:  map[string][]byte{"TEST-a.xml": []byte(`<testsuite tests="3"><testcase`)},
	}
	res := parser.Finalize(strategy(t, types.EcosystemJava).Parse(raw, unit), raw, unit)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, types.ParseTestName, res.Failures[0].TestName)
	assert.Equal(t, "s3", res.Failures[0].Service)
}
