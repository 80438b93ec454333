package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	dotnetSummary = regexp.MustCompile(`Failed:\s*(\d+),\s*Passed:\s*(\d+),\s*Skipped:\s*(\d+)`)
	dotnetHeaders = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*Failed\s+(.+?)\s*\[`),
		regexp.MustCompile(`(?i)^\s*(.+?)\s+\[(?:FAIL|FAILED)\b`),
		regexp.MustCompile(`(?i)^\s*Xunit\.net.*\[FAIL\]`),
	}
)

// ParseDotnetConsole scrapes `dotnet test` console output. Counts come from
// the "Failed: N, Passed: N, Skipped: N" summary. A failure block starts at
// one of the known runner headers and runs until the next header.
func ParseDotnetConsole(output string, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	blocks := newBlockScanner(unit)

	summarySeen := false
	for _, line := range lines(output) {
		if !summarySeen {
			if m := dotnetSummary.FindStringSubmatch(line); m != nil {
				res.Failed = atoi(m[1])
				res.Passed = atoi(m[2])
				res.Skipped = atoi(m[3])
				summarySeen = true
				blocks.flush()
				continue
			}
		}
		if name, ok := dotnetHeader(line); ok {
			blocks.start(name, line)
			continue
		}
		blocks.add(line)
	}

	res.Failures = blocks.outcomes()
	return res
}

func dotnetHeader(line string) (string, bool) {
	for _, rx := range dotnetHeaders {
		m := rx.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return strings.TrimSpace(m[1]), true
		}
		return strings.TrimSpace(line), true
	}
	return "", false
}
