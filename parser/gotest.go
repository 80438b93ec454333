package parser

import (
	"regexp"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

var goFailHeader = regexp.MustCompile(`^---\s+FAIL:\s+(\S+)`)

// ParseGoTest scrapes `go test -v` output. Every `--- PASS/FAIL/SKIP:` line
// counts once, subtests included.
//
// A failure block starts at a top-level `--- FAIL:` line and also carries
// the log lines the test printed since its `=== RUN` line. It ends at a line
// starting with FAIL, a blank line, or the next top-level event.
func ParseGoTest(output string, unit types.ServiceUnit) types.ParseResult {
	var (
		res     types.ParseResult
		pending []string
	)
	blocks := newBlockScanner(unit)

	for _, line := range lines(output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "--- PASS:"):
			res.Passed++
		case strings.HasPrefix(trimmed, "--- FAIL:"):
			res.Failed++
		case strings.HasPrefix(trimmed, "--- SKIP:"):
			res.Skipped++
		}

		if m := goFailHeader.FindStringSubmatch(line); m != nil {
			blocks.start(m[1], append(pending, line)...)
			pending = pending[:0]
			continue
		}
		if strings.HasPrefix(line, "=== ") || strings.HasPrefix(line, "--- ") {
			blocks.flush()
			pending = pending[:0]
			continue
		}
		if !blocks.open {
			pending = append(pending, line)
			continue
		}
		blocks.add(line)
		if strings.HasPrefix(line, "FAIL") || trimmed == "" {
			blocks.flush()
		}
	}

	res.Failures = blocks.outcomes()
	return res
}
