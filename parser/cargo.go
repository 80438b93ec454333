package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	cargoResult = regexp.MustCompile(`test result: \w+\.\s*(\d+) passed;\s*(\d+) failed;\s*(\d+) ignored`)
	cargoStdout = regexp.MustCompile(`^----\s+(\S+)\s+stdout\s+----$`)
	cargoFailed = regexp.MustCompile(`^test\s+(\S+)\s+\.\.\.\s+FAILED$`)
)

// ParseCargo scrapes `cargo test` output. Cargo prints one "test result:"
// line per test binary and doc-test run, and they are summed. Failure
// detail comes from the "---- name stdout ----" sections; without them a
// "test name ... FAILED" line stands in, and as a last resort the whole
// output becomes a single "result" failure.
func ParseCargo(output string, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	blocks := newBlockScanner(unit)
	var failedLines []types.TestOutcome

	for _, line := range lines(output) {
		trimmed := strings.TrimSpace(line)
		if m := cargoResult.FindStringSubmatch(line); m != nil {
			res.Passed += atoi(m[1])
			res.Failed += atoi(m[2])
			res.Skipped += atoi(m[3])
			blocks.flush()
			continue
		}
		if m := cargoFailed.FindStringSubmatch(trimmed); m != nil {
			failedLines = append(failedLines, types.NewFailure(unit, m[1], trimmed))
		}
		if m := cargoStdout.FindStringSubmatch(trimmed); m != nil {
			blocks.start(m[1], trimmed)
			continue
		}
		if trimmed == "failures:" {
			blocks.flush()
			continue
		}
		blocks.add(line)
	}

	res.Failures = blocks.outcomes()
	if len(res.Failures) == 0 {
		res.Failures = failedLines
	}
	if res.Failed > 0 && len(res.Failures) == 0 {
		res.Failures = []types.TestOutcome{types.NewFailure(unit, "result", Tail(Clean(output), maxMessageBytes))}
	}
	return res
}
