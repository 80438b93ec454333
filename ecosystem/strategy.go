// Package ecosystem holds one Strategy per supported test toolchain. A
// strategy knows where services live, whether a service has tests, which
// native commands run them, and how to read what those commands produce.
package ecosystem

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// StepRole decides how the runner treats a step's outcome.
type StepRole string

const (
	// RoleSetup steps resolve dependencies. Their failure is logged only.
	RoleSetup StepRole = "setup"
	// RoleBuild steps must succeed; a failure ends the service with a build failure.
	RoleBuild StepRole = "build"
	// RoleTest steps produce a RawExecution for Parse.
	RoleTest StepRole = "test"
	// RoleTeardown steps always run last. Their failure is logged only.
	RoleTeardown StepRole = "teardown"
)

// Step is one native command invocation.
type Step struct {
	Role    StepRole
	Label   string
	Dir     string
	Command string
	Args    []string
	Env     []string      // Appended to the process environment
	Timeout time.Duration // Zero means the runner's default

	// CleanDirs are removed and MakeDirs created before the step runs, so
	// reports left over from an earlier run are never read as this run's.
	CleanDirs []string
	MakeDirs  []string

	// ReportGlobs are matched against Dir after a test step; matching files
	// are attached to the RawExecution.
	ReportGlobs []string
}

// String renders the command line for logs and messages.
func (s Step) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return s.Command + " " + strings.Join(s.Args, " ")
}

// Plan is the ordered list of steps for one service.
type Plan struct {
	Steps []Step
}

// TestSteps returns the number of test steps in the plan.
func (p Plan) TestSteps() int {
	n := 0
	for _, s := range p.Steps {
		if s.Role == RoleTest {
			n++
		}
	}
	return n
}

// Strategy is the capability set implemented once per ecosystem.
type Strategy interface {
	ID() types.Ecosystem
	// Tool is written to the report's results.tool field.
	Tool() string
	// ReportPrefix is the leading part of the report file name.
	ReportPrefix() string
	// DefaultRoot is the service root relative to the repository checkout.
	DefaultRoot() string
	DefaultExclusions() []string
	// DiscoveryDepth is how many directory levels below the root are
	// searched for services.
	DiscoveryDepth() int

	// IsService reports whether dir is a service unit.
	IsService(fs afero.Fs, dir string) bool
	// HasTests reports whether a service contains at least one test.
	HasTests(fs afero.Fs, dir string) (bool, error)

	// Prepare returns steps run once per run before any service, given the
	// absolute service root.
	Prepare(fs afero.Fs, root string) []Step
	// Plan returns the steps for a single service.
	Plan(fs afero.Fs, unit types.ServiceUnit) (Plan, error)
	// Parse interprets one test step's execution. It must not fail.
	Parse(raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult
}

// Options tune strategies at construction time.
type Options struct {
	// CMakePrefixPath is where the C++ SDK is installed.
	CMakePrefixPath string
	// BuildJobs is passed to make -j. Zero means the number of CPUs.
	BuildJobs int
}

// profile carries the static identity shared by every strategy.
type profile struct {
	id      types.Ecosystem
	tool    string
	prefix  string
	root    string
	exclude []string
	depth   int
}

func (p profile) ID() types.Ecosystem { return p.id }
func (p profile) Tool() string { return p.tool }
func (p profile) ReportPrefix() string { return p.prefix }
func (p profile) DefaultRoot() string { return p.root }

func (p profile) DiscoveryDepth() int {
	if p.depth < 1 {
		return 1
	}
	return p.depth
}

func (p profile) DefaultExclusions() []string {
	out := make([]string, len(p.exclude))
	copy(out, p.exclude)
	return out
}

// Prepare is a no-op unless a strategy overrides it.
func (p profile) Prepare(afero.Fs, string) []Step {
	return nil
}

func (p profile) String() string {
	return fmt.Sprintf("%s (%s)", p.id, p.tool)
}
