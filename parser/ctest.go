package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	ctestSummary = regexp.MustCompile(`(\d+)% tests passed,\s*(\d+) tests? failed out of (\d+)`)
	ctestLine    = regexp.MustCompile(`Test\s+#\d+:\s+(\S+)\s+\.*\s*(\*{3}\w+|Passed|Not Run)`)
	ctestStart   = regexp.MustCompile(`^\s*Start\s+\d+:`)
)

// ParseCTest scrapes `ctest --output-on-failure` output. The "N% tests
// passed, F tests failed out of T" summary is authoritative; without it the
// per-test status lines are counted. With --output-on-failure the failing
// test's output follows its status line, so that becomes the failure block.
func ParseCTest(output string, unit types.ServiceUnit) types.ParseResult {
	var (
		res         types.ParseResult
		lineCounts  types.ParseResult
		haveSummary bool
	)
	blocks := newBlockScanner(unit)

	for _, line := range lines(output) {
		if m := ctestSummary.FindStringSubmatch(line); m != nil {
			total := atoi(m[3])
			res.Failed = atoi(m[2])
			res.Passed = derivePassed(total, res.Failed, 0, 0)
			haveSummary = true
			blocks.flush()
			continue
		}
		if m := ctestLine.FindStringSubmatch(line); m != nil {
			switch {
			case m[2] == "Passed":
				lineCounts.Passed++
				blocks.flush()
			case m[2] == "Not Run":
				lineCounts.Skipped++
				blocks.flush()
			default:
				lineCounts.Failed++
				name := m[1]
				if name == "" {
					name = fmt.Sprintf("test_%d", lineCounts.Failed)
				}
				blocks.start(name, strings.TrimSpace(line))
			}
			continue
		}
		if ctestStart.MatchString(line) || strings.HasPrefix(strings.TrimSpace(line), "The following tests FAILED") {
			blocks.flush()
			continue
		}
		blocks.add(line)
	}

	if !haveSummary {
		res.Passed = lineCounts.Passed
		res.Failed = lineCounts.Failed
		res.Skipped = lineCounts.Skipped
	}
	res.Failures = blocks.outcomes()
	return res
}
