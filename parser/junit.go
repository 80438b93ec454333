package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// FailedLiteral is used as a failure message when a report node carries no text.
const FailedLiteral = "FAILED"

type junitSuites struct {
	Suites []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string       `xml:"name,attr"`
	Tests     string       `xml:"tests,attr"`
	Failures  string       `xml:"failures,attr"`
	Errors    string       `xml:"errors,attr"`
	Skipped   string       `xml:"skipped,attr"`
	TestCases []junitCase  `xml:"testcase"`
	Suites    []junitSuite `xml:"testsuite"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitProblem `xml:"failure"`
	Error     *junitProblem `xml:"error"`
	Skipped   *struct{}     `xml:"skipped"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func (p *junitProblem) text() string {
	parts := make([]string, 0, 2)
	if msg := strings.TrimSpace(p.Message); msg != "" {
		parts = append(parts, msg)
	}
	if body := strings.TrimSpace(p.Body); body != "" {
		parts = append(parts, body)
	}
	if len(parts) == 0 {
		return FailedLiteral
	}
	return strings.Join(parts, "\n")
}

func (c junitCase) displayName() string {
	if c.ClassName == "" {
		return c.Name
	}
	if c.Name == "" {
		return c.ClassName
	}
	return c.ClassName + "." + c.Name
}

// ParseJUnit parses a single JUnit/Surefire XML document. The root element
// may be either <testsuite> or <testsuites>.
func ParseJUnit(data []byte, source string, unit types.ServiceUnit) (types.ParseResult, error) {
	suites, err := decodeJUnit(data)
	if err != nil {
		return types.ParseResult{}, types.NewParseError("junit", source, err)
	}

	var res types.ParseResult
	for _, suite := range suites {
		res.Add(junitSuiteResult(suite, unit))
	}
	return res, nil
}

func decodeJUnit(data []byte) ([]junitSuite, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no root element")
			}
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "testsuites":
			var doc junitSuites
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, err
			}
			return doc.Suites, nil
		case "testsuite":
			var suite junitSuite
			if err := dec.DecodeElement(&suite, &start); err != nil {
				return nil, err
			}
			return []junitSuite{suite}, nil
		default:
			return nil, fmt.Errorf("unexpected root element <%s>", start.Name.Local)
		}
	}
}

// junitSuiteResult prefers the suite's aggregate attributes for counts when
// they are present and falls back to classifying each test case. Failure
// records always come from the test cases, so when the cases hold more
// failures than the attributes admit the case classification is kept.
func junitSuiteResult(suite junitSuite, unit types.ServiceUnit) types.ParseResult {
	var res types.ParseResult
	for _, nested := range suite.Suites {
		res.Add(junitSuiteResult(nested, unit))
	}

	var fromCases types.ParseResult
	for _, tc := range suite.TestCases {
		switch {
		case tc.Failure != nil:
			fromCases.Failed++
			fromCases.Failures = append(fromCases.Failures, types.NewFailure(unit, tc.displayName(), tc.Failure.text()))
		case tc.Error != nil:
			fromCases.Failed++
			fromCases.Failures = append(fromCases.Failures, types.NewFailure(unit, tc.displayName(), tc.Error.text()))
		case tc.Skipped != nil:
			fromCases.Skipped++
		default:
			fromCases.Passed++
		}
	}

	if suite.Tests != "" && len(suite.Suites) == 0 && fromCases.Failed <= atoi(suite.Failures)+atoi(suite.Errors) {
		run := atoi(suite.Tests)
		failures := atoi(suite.Failures)
		errs := atoi(suite.Errors)
		skipped := atoi(suite.Skipped)
		fromCases.Passed = derivePassed(run, failures, errs, skipped)
		fromCases.Failed = failures + errs
		fromCases.Skipped = skipped
	}

	res.Add(fromCases)
	return res
}

// ParseJUnitReports parses every report in reports in path order. Malformed
// files are skipped and returned as a joined error; ok is false when no file
// could be parsed at all.
func ParseJUnitReports(reports map[string][]byte, unit types.ServiceUnit) (res types.ParseResult, ok bool, err error) {
	var errs []error
	for _, path := range sortedKeys(reports) {
		r, perr := ParseJUnit(reports[path], path, unit)
		if perr != nil {
			errs = append(errs, perr)
			continue
		}
		ok = true
		res.Add(r)
	}
	return res, ok, errors.Join(errs...)
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
