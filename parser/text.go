package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// maxMessageBytes caps how much raw output is attached to a single synthetic failure.
const maxMessageBytes = 8 * 1024

// Clean removes ANSI escape sequences and normalizes line endings.
func Clean(output string) string {
	output = stripansi.Strip(output)
	return strings.ReplaceAll(output, "\r\n", "\n")
}

func lines(output string) []string {
	if output == "" {
		return nil
	}
	return strings.Split(Clean(output), "\n")
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// submatchInt returns the integer captured by group idx of the first match of re.
func submatchInt(re *regexp.Regexp, text string, idx int) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil || idx >= len(m) || m[idx] == "" {
		return 0, false
	}
	return atoi(m[idx]), true
}

// Tail returns at most the last n bytes of s, starting on a line boundary when possible.
func Tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[len(s)-n:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx < len(cut)-1 {
		cut = cut[idx+1:]
	}
	return "...\n" + cut
}

// derivePassed computes passed from aggregate counts. Errors are failures for
// the purpose of the subtraction and are never counted twice.
func derivePassed(run, failures, errors, skipped int) int {
	passed := run - (failures + errors + skipped)
	if passed < 0 {
		return 0
	}
	return passed
}

// blockScanner groups lines into failure blocks. A block opens on a header
// line and closes when the terminator matches, another header opens, or input ends.
type blockScanner struct {
	unit    types.ServiceUnit
	blocks  []types.TestOutcome
	current []string
	name    string
	open    bool
}

func newBlockScanner(unit types.ServiceUnit) *blockScanner {
	return &blockScanner{unit: unit}
}

func (b *blockScanner) start(name string, first ...string) {
	b.flush()
	b.open = true
	b.name = name
	b.current = append([]string(nil), first...)
}

func (b *blockScanner) add(line string) {
	if b.open {
		b.current = append(b.current, line)
	}
}

func (b *blockScanner) flush() {
	if !b.open {
		return
	}
	name := b.name
	if name == "" {
		name = fmt.Sprintf("test_%d", len(b.blocks)+1)
	}
	message := strings.TrimSpace(strings.Join(b.current, "\n"))
	b.blocks = append(b.blocks, types.NewFailure(b.unit, name, message))
	b.open = false
	b.current = nil
	b.name = ""
}

func (b *blockScanner) outcomes() []types.TestOutcome {
	b.flush()
	return b.blocks
}

// Finalize applies the rules shared by every ecosystem once a strategy has
// parsed its executions: a timed out invocation always gets a timeout
// failure on top of whatever was parsed, a failed invocation that produced nothing parseable
// becomes one synthetic failure, and failures counted without any detail get
// a placeholder record.
func Finalize(res types.ParseResult, raw *types.RawExecution, unit types.ServiceUnit) types.ParseResult {
	if raw != nil && raw.TimedOut {
		msg := fmt.Sprintf("%s timed out after %s", raw.Command, raw.Duration.Round(time.Second))
		if out := Tail(Clean(raw.Combined()), maxMessageBytes); out != "" {
			msg += "\n" + out
		}
		res.Add(types.SyntheticFailure(unit, types.TimeoutTestName, msg))
		return res
	}
	if res.Empty() {
		if raw.Failed() {
			msg := types.UnparsedFailureMessage
			if out := Tail(Clean(raw.Combined()), maxMessageBytes); out != "" {
				msg += "\n" + out
			}
			return types.SyntheticFailure(unit, types.UnparsedTestName, msg)
		}
		return res
	}
	if res.Failed > 0 && len(res.Failures) == 0 {
		res.Failures = append(res.Failures, types.NewFailure(unit, "unknown", types.UnparsedFailureMessage))
	}
	return res
}
