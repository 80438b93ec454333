package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var (
	rspecSummary = regexp.MustCompile(`(\d+)\s+examples?,\s+(\d+)\s+failures?(?:,\s+(\d+)\s+pending)?`)
	rspecHeader  = regexp.MustCompile(`^\s+\d+\)\s+(.+?)\s*$`)
	rspecRerun   = regexp.MustCompile(`^rspec\s+(\S+)\s+#\s+(.+?)\s*$`)
)

// ParseRSpec scrapes `rspec --format documentation` output. Failure blocks
// are the numbered entries of the "Failures:" section; when that section is
// missing the "rspec ./file:line # description" rerun lines are used.
func ParseRSpec(output string, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	blocks := newBlockScanner(unit)
	var reruns []types.TestOutcome

	inFailures := false
	for _, line := range lines(output) {
		trimmed := strings.TrimSpace(line)

		if m := rspecSummary.FindStringSubmatch(line); m != nil {
			total := atoi(m[1])
			res.Failed = atoi(m[2])
			res.Skipped = atoi(m[3])
			res.Passed = derivePassed(total, res.Failed, 0, res.Skipped)
		}
		if m := rspecRerun.FindStringSubmatch(trimmed); m != nil {
			reruns = append(reruns, types.NewFailure(unit, m[2], trimmed))
		}

		switch {
		case trimmed == "Failures:":
			inFailures = true
			continue
		case strings.HasPrefix(trimmed, "Finished in") || trimmed == "Failed examples:" || trimmed == "Pending:":
			inFailures = false
			blocks.flush()
			continue
		}
		if !inFailures {
			continue
		}
		if m := rspecHeader.FindStringSubmatch(line); m != nil {
			blocks.start(m[1], trimmed)
			continue
		}
		blocks.add(line)
	}

	res.Failures = blocks.outcomes()
	if len(res.Failures) == 0 {
		res.Failures = reruns
	}
	return res
}
