// Package exitcodes defines the exit codes used by weathertop.
package exitcodes

// Exit code constants used by weathertop:
//
// * Success (0): the run completed and a report was written
// * TestFailure (1): tests failed and --fail-on-test-failure is set
// * RuntimeErr (2): configuration, discovery, clone or local report errors
const (
	Success     = 0 // Run completed
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
