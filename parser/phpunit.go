package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	phpunitOK       = regexp.MustCompile(`OK\s*\((\d+)\s+tests?`)
	phpunitTests    = regexp.MustCompile(`Tests:\s*(\d+)`)
	phpunitFailures = regexp.MustCompile(`Failures:\s*(\d+)`)
	phpunitErrors   = regexp.MustCompile(`Errors:\s*(\d+)`)
	phpunitSkipped  = regexp.MustCompile(`Skipped:\s*(\d+)`)
	phpunitNumbered = regexp.MustCompile(`(?m)^\d+\) `)
)

// ParsePHPUnit scrapes PHPUnit output for a single test file. The whole
// output becomes one failure record named after the file when anything failed.
func ParsePHPUnit(output, testFile string, unit types.ServiceUnit) types.ParseResult {
	cleaned := Clean(output)
	res := phpunitCounts(cleaned)
	if res.Failed > 0 {
		name := testFile
		if name == "" {
			name = unit.Name
		}
		res.Failures = []types.TestOutcome{types.NewFailure(unit, name, cleaned)}
	}
	return res
}

func phpunitCounts(output string) types.ParseResult {
	if n, ok := submatchInt(phpunitOK, output, 1); ok {
		return types.ParseResult{Passed: n}
	}

	// "Tests: 5, Assertions: 9, Errors: 1, Failures: 1, Skipped: 1."
	if idx := strings.LastIndex(output, "Tests:"); idx >= 0 {
		summary := output[idx:]
		if end := strings.IndexByte(summary, '\n'); end >= 0 {
			summary = summary[:end]
		}
		total, _ := submatchInt(phpunitTests, summary, 1)
		failures, _ := submatchInt(phpunitFailures, summary, 1)
		errs, _ := submatchInt(phpunitErrors, summary, 1)
		skipped, _ := submatchInt(phpunitSkipped, summary, 1)
		if total > 0 {
			return types.ParseResult{
				Passed:  derivePassed(total, failures, errs, skipped),
				Failed:  failures + errs,
				Skipped: skipped,
			}
		}
	}

	if strings.Contains(output, "FAILURES!") || strings.Contains(output, "ERRORS!") {
		return types.ParseResult{Failed: len(phpunitNumbered.FindAllString(output, -1))}
	}
	return types.ParseResult{}
}
