package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEcosystem(t *testing.T) {
	tests := []struct {
		input   string
		want    Ecosystem
		wantErr bool
	}{
		{input: "java", want: EcosystemJava},
		{input: "Go", want: EcosystemGo},
		{input: " dotnet ", want: EcosystemDotNet},
		{input: "cpp", want: EcosystemCPP},
		{input: "python", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEcosystem(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "must be one of")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPassRate(t *testing.T) {
	assert.Equal(t, 0.0, PassRate(0, 0))
	assert.Equal(t, 0.0, PassRate(5, 0))
	assert.InDelta(t, 0.75, PassRate(3, 4), 1e-9)
	assert.InDelta(t, 1.0, PassRate(10, 10), 1e-9)
}

func TestPassRateDisplay(t *testing.T) {
	s := Summary{PassRate: PassRate(2, 3)}
	assert.Equal(t, "66.7%", s.PassRateDisplay())
	assert.InDelta(t, 0.6666666, s.PassRate, 1e-6, "stored value keeps full precision")
}

func TestParseResultAdd(t *testing.T) {
	unit := ServiceUnit{Name: "s3", Order: 2}
	a := ParseResult{Passed: 2, Skipped: 1}
	b := SyntheticFailure(unit, SetupTestName, "boom")
	a.Add(b)

	assert.Equal(t, 2, a.Passed)
	assert.Equal(t, 1, a.Failed)
	assert.Equal(t, 1, a.Skipped)
	assert.Equal(t, 4, a.Tests())
	require.Len(t, a.Failures, 1)
	assert.Equal(t, "s3", a.Failures[0].Service)
	assert.Equal(t, SetupTestName, a.Failures[0].TestName)
	assert.Equal(t, TestStatusFailed, a.Failures[0].Status)
	assert.Equal(t, 2, a.Failures[0].OrderTested)
}

func TestRawExecutionCombined(t *testing.T) {
	var nilExec *RawExecution
	assert.Equal(t, "", nilExec.Combined())
	assert.False(t, nilExec.Failed())

	r := &RawExecution{Stdout: "out"}
	assert.Equal(t, "out", r.Combined())
	r.Stderr = "err"
	assert.Equal(t, "out\nerr", r.Combined())
	assert.False(t, r.Failed())
	r.TimedOut = true
	assert.True(t, r.Failed())
}

func TestRunReportJSONShape(t *testing.T) {
	report := RunReport{
		SchemaVersion: SchemaVersion,
		RunID:         "abc",
		Results: Results{
			Tool: "maven",
			Summary: Summary{
				Services:  1,
				Tests:     3,
				Passed:    2,
				Failed:    1,
				PassRate:  PassRate(2, 3),
				StartTime: 1000,
				StopTime:  2500,
			},
			Tests: []TestOutcome{
				NewFailure(ServiceUnit{Name: "sqs", Order: 1}, "testSend", "  boom\n"),
			},
			NoTests: []string{},
		},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "0.0.1", decoded["schema-version"])

	results := decoded["results"].(map[string]any)
	assert.Equal(t, "maven", results["tool"])
	assert.NotContains(t, results, "service_details")
	assert.Equal(t, []any{}, results["no_tests"])

	summary := results["summary"].(map[string]any)
	for _, key := range []string{"services", "tests", "passed", "failed", "skipped", "pass_rate", "start_time", "stop_time"} {
		assert.Contains(t, summary, key)
	}

	tests := results["tests"].([]any)
	require.Len(t, tests, 1)
	first := tests[0].(map[string]any)
	assert.Equal(t, "sqs", first["service"])
	assert.Equal(t, "testSend", first["test_name"])
	assert.Equal(t, "failed", first["status"])
	assert.Equal(t, "boom", first["message"])
	assert.Equal(t, float64(1), first["order_tested"])

	assert.Equal(t, 1500*time.Millisecond, report.Results.Summary.Duration())
	assert.True(t, report.HasFailures())
}

func TestErrorTaxonomy(t *testing.T) {
	base := errors.New("root cause")

	disc := fmt.Errorf("wrapped: %w", NewDiscoveryError("/missing", base))
	assert.True(t, IsDiscoveryError(disc))
	assert.False(t, IsAdapterError(disc))
	assert.ErrorIs(t, disc, base)

	adapter := NewAdapterError("sqs", "mvn test", base)
	assert.True(t, IsAdapterError(adapter))
	assert.Equal(t, "service sqs: mvn test: root cause", adapter.Error())

	parse := NewParseError("junit", "TEST-x.xml", base)
	assert.True(t, IsParseError(parse))
	assert.Contains(t, parse.Error(), "TEST-x.xml")

	local := NewSinkError(false, "out.json", base)
	upload := NewSinkError(true, "s3://bucket/out.json", base)
	assert.True(t, IsSinkError(local))
	assert.False(t, IsUploadError(local))
	assert.True(t, IsUploadError(upload))
	assert.Contains(t, upload.Error(), "upload")

	assert.False(t, IsSinkError(nil))
}
