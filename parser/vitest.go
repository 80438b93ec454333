package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	vitestPassed   = regexp.MustCompile(`(\d+)\s+passed`)
	vitestFailed   = regexp.MustCompile(`(\d+)\s+failed`)
	vitestSkipped  = regexp.MustCompile(`(\d+)\s+skipped`)
	vitestDuration = regexp.MustCompile(`\s+\d+(?:\.\d+)?m?s$`)
	vitestSection  = regexp.MustCompile(`^\s*(?:FAIL|ERROR)\b\s*`)
	vitestListed   = regexp.MustCompile(`^\s*(?:×|✗)\s*`)
)

// ParseVitest scrapes `vitest --run` output. Counts come from the "Tests"
// summary line; the "Test Files" line above it counts files, not tests.
// Failure records come from the FAIL and ERROR blocks of the "Failed Tests"
// section. The × lines of the run listing are used only when that section
// is missing, so each failing test is reported once.
func ParseVitest(output string, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	section := newBlockScanner(unit)
	listed := newBlockScanner(unit)

	var summary, fallback string
	for _, line := range lines(output) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Tests ") {
			summary = trimmed
		} else if !strings.HasPrefix(trimmed, "Test Files") && vitestPassed.MatchString(trimmed) {
			fallback = trimmed
		}

		if loc := vitestSection.FindStringIndex(line); loc != nil {
			listed.flush()
			section.start(vitestTestName(line[loc[1]:]), line)
			continue
		}
		if loc := vitestListed.FindStringIndex(line); loc != nil {
			section.flush()
			listed.start(vitestTestName(line[loc[1]:]), line)
			continue
		}
		if trimmed == "" {
			section.flush()
			listed.flush()
			continue
		}
		section.add(line)
		listed.add(line)
	}

	if summary == "" {
		summary = fallback
	}
	if summary != "" {
		res.Passed, _ = submatchInt(vitestPassed, summary, 1)
		res.Failed, _ = submatchInt(vitestFailed, summary, 1)
		res.Skipped, _ = submatchInt(vitestSkipped, summary, 1)
	}
	res.Failures = section.outcomes()
	if len(res.Failures) == 0 {
		res.Failures = listed.outcomes()
	}
	return res
}

// vitestTestName keeps the full "file > suite > test" path and drops the
// trailing duration vitest prints after listed tests.
func vitestTestName(rest string) string {
	return vitestDuration.ReplaceAllString(strings.TrimSpace(rest), "")
}
