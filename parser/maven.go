package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	mavenSummary       = regexp.MustCompile(`Tests run:\s*(\d+),\s*Failures:\s*(\d+),\s*Errors:\s*(\d+),\s*Skipped:\s*(\d+)`)
	mavenFailureHeader = regexp.MustCompile(`<<<\s*(FAILURE|ERROR)!`)
	mavenHeaderName    = regexp.MustCompile(`^\[(?:ERROR|WARNING|INFO)\]\s+(\S+)`)
)

// ParseMavenConsole scrapes Maven Surefire console output. The aggregate
// "Tests run:" lines printed under "Results:" win and are summed across the
// modules of a reactor build; when none is present the per-class lines are
// summed instead. Each `<<< FAILURE!` or `<<< ERROR!`
// test header opens a failure block that ends at the next blank line.
func ParseMavenConsole(output string, unit types.ServiceUnit) types.ParseResult {
	var (
		res        types.ParseResult
		aggregate    [4]int
		perClass     [4]int
		sawSummary   bool
		sawAggregate bool
	)
	blocks := newBlockScanner(unit)

	for _, line := range lines(output) {
		if m := mavenSummary.FindStringSubmatch(line); m != nil {
			sawSummary = true
			counts := []int{atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4])}
			if strings.Contains(line, "Time elapsed") {
				for i := range perClass {
					perClass[i] += counts[i]
				}
			} else {
				sawAggregate = true
				for i := range aggregate {
					aggregate[i] += counts[i]
				}
			}
			blocks.flush()
			continue
		}

		if mavenFailureHeader.MatchString(line) {
			blocks.start(mavenTestName(line, unit, len(blocks.blocks)+1), line)
			continue
		}
		if !blocks.open {
			continue
		}
		if strings.TrimSpace(line) == "" {
			blocks.flush()
			continue
		}
		blocks.add(line)
	}

	if sawSummary {
		counts := perClass
		if sawAggregate {
			counts = aggregate
		}
		res.Passed = derivePassed(counts[0], counts[1], counts[2], counts[3])
		res.Failed = counts[1] + counts[2]
		res.Skipped = counts[3]
	}
	res.Failures = blocks.outcomes()
	return res
}

func mavenTestName(line string, unit types.ServiceUnit, n int) string {
	if m := mavenHeaderName.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return fmt.Sprintf("test_%s_%d", unit.Name, n)
}
