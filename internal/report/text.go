package report

import (
	"fmt"
	"strings"

	"github.com/zjy-dev/covtrack/internal/classify"
	"github.com/zjy-dev/covtrack/internal/engine"
)

// TextFormatter renders a per-line annotated listing. Every executable line
// shows one of three states: never executed, executed but not validated, or
// covered by an assertion. Non-executable lines form the fixed fourth state.
type TextFormatter struct{}

// NewTextFormatter creates the plain-text listing formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Name returns "text".
func (f *TextFormatter) Name() string { return "text" }

// Line markers in the annotated listing:
//
//	      -  non-executable
//	***0***  executable, never executed
//	<count>  executed, not validated by any assertion
//	<count>*  executed and covered
func marker(ls engine.LineSummary) string {
	if !countableKind(ls.Kind) {
		return "      -"
	}
	if ls.Count == 0 {
		return "***0***"
	}
	if ls.Covered {
		return fmt.Sprintf("%6d*", ls.Count)
	}
	return fmt.Sprintf("%6d ", ls.Count)
}

func countableKind(k classify.LineKind) bool {
	return k == classify.Executable || k == classify.BlockStart
}

// Render writes the annotated listing for every file plus a closing totals
// section.
func (f *TextFormatter) Render(sum *engine.Summary) ([]byte, error) {
	var b strings.Builder

	for _, file := range sum.Files {
		fmt.Fprintf(&b, "==== %s ==== %.2f%% (%d/%d)\n",
			file.Path, file.CoveragePercent, file.CoveredLines, file.ExecutableLines)
		for _, ls := range file.Lines {
			fmt.Fprintf(&b, "%s | %s\n", marker(ls), ls.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Total: %d lines, %d executable, %d executed, %d covered (%.2f%%)\n",
		sum.TotalLines, sum.ExecutableLines, sum.ExecutedLines, sum.CoveredLines, sum.CoveragePercent)
	if sum.Anomalies.NonExecutableExecutions > 0 || sum.Anomalies.InternalFaults > 0 {
		fmt.Fprintf(&b, "Anomalies: %d executions of non-executable lines, %d internal faults\n",
			sum.Anomalies.NonExecutableExecutions, sum.Anomalies.InternalFaults)
	}

	return []byte(b.String()), nil
}
