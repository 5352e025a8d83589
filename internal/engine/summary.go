package engine

import (
	"fmt"
	"sort"

	"github.com/zjy-dev/covtrack/internal/classify"
)

// AnomalyStats surfaces tracking irregularities without failing anything:
// executions on lines the classifier considers non-executable point at
// classifier drift, internal faults at bugs in the tracking layer itself.
type AnomalyStats struct {
	NonExecutableExecutions uint64 `json:"non_executable_executions"`
	InternalFaults          uint64 `json:"internal_faults"`
}

// LineSummary is the merged static and dynamic state of one source line.
type LineSummary struct {
	Number  int               `json:"number"`
	Kind    classify.LineKind `json:"kind"`
	Count   uint64            `json:"count"`
	Covered bool              `json:"covered"`
	Text    string            `json:"text"`
}

// FunctionSummary aggregates execution of one function. Anonymous functions
// get an id synthesized from file and line.
type FunctionSummary struct {
	File        string `json:"file"`
	Name        string `json:"name"`
	DefinedLine int    `json:"defined_line"`
	EndLine     int    `json:"end_line"`
	Count       uint64 `json:"count"`
}

// BlockSummary aggregates execution of one lexical block. ParentStart and
// ParentEnd are a lookup key into the enclosing block's summary, resolved by
// renderers on demand.
type BlockSummary struct {
	Type        classify.BlockType `json:"type"`
	StartLine   int                `json:"start_line"`
	EndLine     int                `json:"end_line"`
	ParentStart int                `json:"parent_start"`
	ParentEnd   int                `json:"parent_end"`
	Count       uint64             `json:"count"`
}

// ConditionSummary aggregates the outcomes of one short-circuit operand.
type ConditionSummary struct {
	Line       int    `json:"line"`
	Index      int    `json:"index"`
	TrueCount  uint64 `json:"true_count"`
	FalseCount uint64 `json:"false_count"`
}

// FileSummary is the per-file coverage breakdown.
type FileSummary struct {
	Path            string             `json:"path"`
	Rule            string             `json:"rule"`
	TotalLines      int                `json:"total_lines"`
	ExecutableLines int                `json:"executable_lines"`
	ExecutedLines   int                `json:"executed_lines"`
	CoveredLines    int                `json:"covered_lines"`
	CoveragePercent float64            `json:"coverage_percent"`
	Lines           []LineSummary      `json:"lines"`
	Blocks          []BlockSummary     `json:"blocks,omitempty"`
	Conditions      []ConditionSummary `json:"conditions,omitempty"`
	Anomalous       uint64             `json:"anomalous"`
}

// Summary is the complete read-only view handed to report formatters. It
// contains no timestamps: the same session data always yields the same
// summary.
type Summary struct {
	TotalLines      int               `json:"total_lines"`
	ExecutableLines int               `json:"executable_lines"`
	ExecutedLines   int               `json:"executed_lines"`
	CoveredLines    int               `json:"covered_lines"`
	CoveragePercent float64           `json:"coverage_percent"`
	Files           []FileSummary     `json:"files"`
	Functions       []FunctionSummary `json:"functions"`
	Anomalies       AnomalyStats      `json:"anomalies"`
}

// Percent computes covered/executable as a percentage. A file with no
// executable lines is trivially fully covered, so 0/0 is 100 by convention.
func Percent(covered, executable int) float64 {
	if executable == 0 {
		return 100.0
	}
	return float64(covered) / float64(executable) * 100.0
}

// countable reports whether a line kind participates in coverage totals.
// Block-opening lines run code (the condition, the loop header); lines that
// only close a block do not.
func countable(k classify.LineKind) bool {
	return k == classify.Executable || k == classify.BlockStart
}

// Summary computes the aggregated coverage view. It is pure: calling it does
// not change session state, and it is valid both while running and after
// Stop. The result before Stop and immediately after is identical.
func (s *Session) Summary() *Summary {
	s.mu.RLock()
	states := make([]*fileState, 0, len(s.files))
	for _, fs := range s.files {
		states = append(states, fs)
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].path < states[j].path })

	sum := &Summary{
		Anomalies: AnomalyStats{InternalFaults: s.faults.Load()},
	}

	for _, fs := range states {
		file := s.summarizeFile(fs)
		sum.TotalLines += file.TotalLines
		sum.ExecutableLines += file.ExecutableLines
		sum.ExecutedLines += file.ExecutedLines
		sum.CoveredLines += file.CoveredLines
		sum.Anomalies.NonExecutableExecutions += file.Anomalous
		sum.Files = append(sum.Files, file)
		sum.Functions = append(sum.Functions, s.summarizeFunctions(fs)...)
	}

	sum.CoveragePercent = Percent(sum.CoveredLines, sum.ExecutableLines)

	sort.Slice(sum.Functions, func(i, j int) bool {
		a, b := sum.Functions[i], sum.Functions[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.DefinedLine < b.DefinedLine
	})
	return sum
}

func (s *Session) summarizeFile(fs *fileState) FileSummary {
	snap := fs.store.Snapshot()

	file := FileSummary{
		Path:       fs.path,
		Rule:       fs.rule,
		TotalLines: len(fs.lines),
		Anomalous:  fs.store.Anomalous(),
	}

	file.Lines = make([]LineSummary, len(fs.lines))
	for i := range fs.lines {
		lineNo := i + 1
		kind := fs.info.Kinds[i]
		ls := LineSummary{Number: lineNo, Kind: kind, Text: fs.lines[i]}
		if rec, ok := snap[lineNo]; ok {
			ls.Count = rec.Count
			ls.Covered = rec.Covered
		}
		file.Lines[i] = ls

		if !countable(kind) {
			continue
		}
		file.ExecutableLines++
		if ls.Count > 0 {
			file.ExecutedLines++
		}
		if ls.Covered {
			file.CoveredLines++
		}
	}
	file.CoveragePercent = Percent(file.CoveredLines, file.ExecutableLines)

	if s.cfg.TrackBlocks {
		file.Blocks = make([]BlockSummary, 0, len(fs.info.Blocks))
		for _, b := range fs.info.Blocks {
			bs := BlockSummary{
				Type:        b.Type,
				StartLine:   b.StartLine,
				EndLine:     b.EndLine,
				ParentStart: b.ParentStart,
				ParentEnd:   b.ParentEnd,
			}
			// A block runs as often as its opening line.
			if rec, ok := snap[b.StartLine]; ok {
				bs.Count = rec.Count
			}
			file.Blocks = append(file.Blocks, bs)
		}
	}

	if s.cfg.TrackConditions && fs.conds != nil {
		file.Conditions = make([]ConditionSummary, 0, len(fs.conds))
		for key, cc := range fs.conds {
			file.Conditions = append(file.Conditions, ConditionSummary{
				Line:       key.Line,
				Index:      key.Index,
				TrueCount:  cc.trueCount.Load(),
				FalseCount: cc.falseCount.Load(),
			})
		}
		sort.Slice(file.Conditions, func(i, j int) bool {
			a, b := file.Conditions[i], file.Conditions[j]
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Index < b.Index
		})
	}

	return file
}

// summarizeFunctions derives per-function execution counts. The count comes
// from the first body line seen executing, since definition lines only run
// when the chunk is loaded. A function whose body shares its definition line
// has no separate body lines, so that line's count stands in.
func (s *Session) summarizeFunctions(fs *fileState) []FunctionSummary {
	snap := fs.store.Snapshot()

	out := make([]FunctionSummary, 0, len(fs.info.Functions))
	for _, fn := range fs.info.Functions {
		fsum := FunctionSummary{
			File:        fs.path,
			Name:        fn.Name,
			DefinedLine: fn.StartLine,
			EndLine:     fn.EndLine,
		}
		if fsum.Name == "" {
			fsum.Name = fmt.Sprintf("<anon:%s:%d>", fs.path, fn.StartLine)
		}
		if fn.EndLine <= fn.StartLine+1 {
			// One-line function: the definition line is the body.
			if rec, ok := snap[fn.StartLine]; ok {
				fsum.Count = rec.Count
			}
		} else {
			for line := fn.StartLine + 1; line < fn.EndLine; line++ {
				if rec, ok := snap[line]; ok && rec.Count > 0 {
					fsum.Count = rec.Count
					break
				}
			}
		}
		out = append(out, fsum)
	}
	return out
}
