package report

import (
	"path"
	"strings"

	"github.com/zjy-dev/gcovr-json-util/v2/pkg/gcovr"

	"github.com/zjy-dev/covtrack/internal/engine"
)

// DriftEntry records one disagreement between an external gcov-style report
// and this session's own records for the same line.
type DriftEntry struct {
	File     string
	Function string
	Line     int
	Reason   string
}

// DriftReport is the result of cross-checking a session summary against an
// externally produced uncovered-lines report. Disagreements signal classifier
// or instrumentation drift and are informational, never fatal.
type DriftReport struct {
	Entries []DriftEntry
}

const (
	reasonExternalUncovered = "external report says uncovered, session recorded covered"
	reasonSessionUncovered  = "session recorded uncovered, external report omits the line"
)

// CheckGcovrDrift compares a session summary with a gcovr uncovered report.
// sourceRoot, when non-empty, is prepended to the report's relative paths so
// both sides name files identically. Both directions of disagreement become
// entries: lines the external tool says are uncovered but this session saw
// covered, and countable lines this session never saw covered that the
// external uncovered list omits. Files only one side knows about are skipped;
// absence of a whole file is registration scope, not drift.
func CheckGcovrDrift(sum *engine.Summary, rep *gcovr.UncoveredReport, sourceRoot string) *DriftReport {
	drift := &DriftReport{}
	if rep == nil || sum == nil {
		return drift
	}

	byPath := make(map[string]*engine.FileSummary, len(sum.Files))
	for i := range sum.Files {
		byPath[sum.Files[i].Path] = &sum.Files[i]
	}

	for _, gf := range rep.Files {
		filePath := gf.FilePath
		if sourceRoot != "" {
			filePath = path.Join(sourceRoot, gf.FilePath)
		}
		filePath = strings.ReplaceAll(filePath, "\\", "/")

		fsum, known := byPath[filePath]
		if !known {
			continue
		}

		covered := make(map[int]bool, len(fsum.Lines))
		for _, ls := range fsum.Lines {
			covered[ls.Number] = ls.Covered
		}

		extUncovered := make(map[int]bool)
		for _, fn := range gf.UncoveredFunctions {
			name := fn.DemangledName
			if name == "" {
				name = fn.FunctionName
			}
			for _, lineNo := range fn.UncoveredLineNumbers {
				extUncovered[lineNo] = true
				if covered[lineNo] {
					drift.Entries = append(drift.Entries, DriftEntry{
						File:     filePath,
						Function: name,
						Line:     lineNo,
						Reason:   reasonExternalUncovered,
					})
				}
			}
		}

		for _, ls := range fsum.Lines {
			if !countableKind(ls.Kind) || ls.Covered || extUncovered[ls.Number] {
				continue
			}
			drift.Entries = append(drift.Entries, DriftEntry{
				File:   filePath,
				Line:   ls.Number,
				Reason: reasonSessionUncovered,
			})
		}
	}

	return drift
}
