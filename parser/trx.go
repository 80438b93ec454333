package parser

import (
	"encoding/xml"
	"errors"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// TRX elements carry the TeamTest namespace; encoding/xml matches on the
// local name when the tag has none, so the structs below ignore it.
type trxRun struct {
	XMLName xml.Name        `xml:"TestRun"`
	Results []trxUnitResult `xml:"Results>UnitTestResult"`
	Summary *trxSummary     `xml:"ResultSummary"`
}

type trxUnitResult struct {
	TestName   string `xml:"testName,attr"`
	Outcome    string `xml:"outcome,attr"`
	Message    string `xml:"Output>ErrorInfo>Message"`
	StackTrace string `xml:"Output>ErrorInfo>StackTrace"`
	StdOut     string `xml:"Output>StdOut"`
}

type trxSummary struct {
	Outcome  string      `xml:"outcome,attr"`
	Counters trxCounters `xml:"Counters"`
}

type trxCounters struct {
	Total       int `xml:"total,attr"`
	Executed    int `xml:"executed,attr"`
	Passed      int `xml:"passed,attr"`
	Failed      int `xml:"failed,attr"`
	Error       int `xml:"error,attr"`
	Timeout     int `xml:"timeout,attr"`
	Aborted     int `xml:"aborted,attr"`
	NotExecuted int `xml:"notExecuted,attr"`
}

// ParseTRX parses an MSTest/VSTest TRX result file.
func ParseTRX(data []byte, source string, unit types.ServiceUnit) (types.ParseResult, error) {
	var run trxRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return types.ParseResult{}, types.NewParseError("trx", source, err)
	}

	var res types.ParseResult
	for _, r := range run.Results {
		switch strings.ToLower(r.Outcome) {
		case "passed":
			res.Passed++
		case "failed", "error", "timeout", "aborted":
			res.Failed++
			res.Failures = append(res.Failures, types.NewFailure(unit, trxName(r), trxMessage(r)))
		default:
			// NotExecuted, Inconclusive, Pending and friends.
			res.Skipped++
		}
	}

	if len(run.Results) == 0 && run.Summary != nil {
		c := run.Summary.Counters
		failed := c.Failed + c.Error + c.Timeout + c.Aborted
		res.Failed = failed
		res.Skipped = c.NotExecuted
		res.Passed = derivePassed(c.Total, failed, 0, c.NotExecuted)
	}

	if run.Summary == nil && len(run.Results) == 0 {
		return types.ParseResult{}, types.NewParseError("trx", source, errors.New("no results or summary"))
	}
	return res, nil
}

func trxName(r trxUnitResult) string {
	if r.TestName == "" {
		return "unknown"
	}
	return r.TestName
}

func trxMessage(r trxUnitResult) string {
	parts := make([]string, 0, 2)
	if msg := strings.TrimSpace(r.Message); msg != "" {
		parts = append(parts, msg)
	}
	if st := strings.TrimSpace(r.StackTrace); st != "" {
		parts = append(parts, st)
	}
	if len(parts) == 0 {
		if out := strings.TrimSpace(r.StdOut); out != "" {
			return out
		}
		return FailedLiteral
	}
	return strings.Join(parts, "\n\n")
}

// ParseTRXReports parses every TRX report in path order, see ParseJUnitReports.
func ParseTRXReports(reports map[string][]byte, unit types.ServiceUnit) (res types.ParseResult, ok bool, err error) {
	var errs []error
	for _, path := range sortedKeys(reports) {
		r, perr := ParseTRX(reports[path], path, unit)
		if perr != nil {
			errs = append(errs, perr)
			continue
		}
		ok = true
		res.Add(r)
	}
	return res, ok, errors.Join(errs...)
}
