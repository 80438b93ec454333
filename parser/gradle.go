package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	gradleSummary    = regexp.MustCompile(`(\d+)\s+tests?\s+completed,\s*(\d+)\s+failed(?:,\s*(\d+)\s+skipped)?`)
	gradleFailedTest = regexp.MustCompile(`^(\S.*?)\s+>\s+(.+?)\s+FAILED\s*$`)
)

// ParseGradleConsole scrapes `gradle test` console output. It is only used
// when no JUnit XML was produced, typically because the build itself failed.
// Each "Class > test FAILED" line opens a block that collects the indented
// lines below it.
func ParseGradleConsole(output string, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	blocks := newBlockScanner(unit)

	for _, line := range lines(output) {
		if m := gradleSummary.FindStringSubmatch(line); m != nil {
			total := atoi(m[1])
			res.Failed = atoi(m[2])
			res.Skipped = atoi(m[3])
			res.Passed = derivePassed(total, res.Failed, 0, res.Skipped)
			blocks.flush()
			continue
		}
		if m := gradleFailedTest.FindStringSubmatch(line); m != nil {
			blocks.start(m[1]+"."+m[2], line)
			continue
		}
		if !blocks.open {
			continue
		}
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, " ") {
			blocks.flush()
			continue
		}
		blocks.add(line)
	}

	res.Failures = blocks.outcomes()
	return res
}
