package report

import (
	"fmt"
	"strings"

	"github.com/zjy-dev/covtrack/internal/engine"
)

// MarkdownFormatter renders a summary-table report suitable for inclusion in
// session write-ups.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates the markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Name returns "markdown".
func (f *MarkdownFormatter) Name() string { return "markdown" }

// Render writes per-file and per-function coverage tables followed by totals.
func (f *MarkdownFormatter) Render(sum *engine.Summary) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Coverage Report\n\n")

	b.WriteString("## Files\n\n")
	b.WriteString("| File | Executable | Executed | Covered | Coverage |\n")
	b.WriteString("|------|-----------:|---------:|--------:|---------:|\n")
	for _, file := range sum.Files {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %.2f%% |\n",
			file.Path, file.ExecutableLines, file.ExecutedLines, file.CoveredLines, file.CoveragePercent)
	}
	fmt.Fprintf(&b, "| **Total** | %d | %d | %d | %.2f%% |\n\n",
		sum.ExecutableLines, sum.ExecutedLines, sum.CoveredLines, sum.CoveragePercent)

	if len(sum.Functions) > 0 {
		b.WriteString("## Functions\n\n")
		b.WriteString("| Function | File | Line | Executions |\n")
		b.WriteString("|----------|------|-----:|-----------:|\n")
		for _, fn := range sum.Functions {
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", fn.Name, fn.File, fn.DefinedLine, fn.Count)
		}
		b.WriteString("\n")
	}

	if sum.Anomalies.NonExecutableExecutions > 0 || sum.Anomalies.InternalFaults > 0 {
		b.WriteString("## Anomalies\n\n")
		fmt.Fprintf(&b, "- Executions of non-executable lines: %d\n", sum.Anomalies.NonExecutableExecutions)
		fmt.Fprintf(&b, "- Internal tracking faults: %d\n", sum.Anomalies.InternalFaults)
	}

	return []byte(b.String()), nil
}
