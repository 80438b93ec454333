package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

const maxFailureMessage = 120

// PrintSummaryTable renders one row per service, its failed tests beneath it,
// and a TOTAL footer.
func PrintSummaryTable(w io.Writer, report *types.RunReport) {
	if report == nil {
		return
	}
	results := report.Results
	summary := results.Summary

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s Test Results (%s)", results.Tool, formatDuration(summary.Duration())))

	t.AppendHeader(table.Row{
		"Order", "Service", "Tests", "Passed", "Failed", "Skipped", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Order", Align: text.AlignRight},
		{Name: "Service", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	failures := make(map[string][]types.TestOutcome)
	for _, f := range results.Tests {
		failures[f.Service] = append(failures[f.Service], f)
	}

	for _, d := range results.ServiceDetails {
		if !d.HasTests {
			t.AppendRow(table.Row{d.OrderTested, d.ServiceName, "-", "-", "-", "-", "NO TESTS", ""})
			continue
		}
		t.AppendRow(table.Row{
			d.OrderTested,
			d.ServiceName,
			d.TestsRun,
			d.Passed,
			d.Failed,
			d.Skipped,
			statusString(d.Failed),
			"",
		})
		fs := failures[d.ServiceName]
		for i, f := range fs {
			prefix := "├──"
			if i == len(fs)-1 {
				prefix = "└──"
			}
			t.AppendRow(table.Row{
				"",
				fmt.Sprintf("%s %s", prefix, f.TestName),
				"", "", "", "",
				"FAIL",
				shortMessage(f.Message),
			})
		}
	}

	if summary.Failed == 0 {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d services", summary.Services),
		summary.Tests,
		summary.Passed,
		summary.Failed,
		summary.Skipped,
		summary.PassRateDisplay(),
		"",
	})

	t.Render()
}

// SummaryTable returns the rendered table without colours, for log files.
func SummaryTable(report *types.RunReport) string {
	var b strings.Builder
	PrintSummaryTable(&b, report)
	return stripansi.Strip(b.String())
}

func statusString(failed int) string {
	if failed > 0 {
		return "FAIL"
	}
	return "PASS"
}

// shortMessage keeps the first line of a failure message.
func shortMessage(msg string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")
	if len(line) > maxFailureMessage {
		return line[:maxFailureMessage] + "..."
	}
	return line
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
