package classify

import (
	"regexp"
	"strings"
)

// BlockType categorizes a lexical block for nested execution reporting.
type BlockType int

const (
	BlockOther BlockType = iota
	BlockBranch
	BlockLoop
	BlockFunction
)

// String returns a human-readable name for the block type.
func (t BlockType) String() string {
	switch t {
	case BlockBranch:
		return "branch"
	case BlockLoop:
		return "loop"
	case BlockFunction:
		return "function-body"
	default:
		return "other"
	}
}

// FunctionInfo describes a function found during static analysis.
// Name is empty for anonymous functions; the engine synthesizes an id then.
type FunctionInfo struct {
	Name      string
	StartLine int
	EndLine   int
}

// BlockInfo describes a lexical block. ParentStart/ParentEnd form a lookup
// key into the enclosing block, never an owning reference; both are zero for
// top-level blocks.
type BlockInfo struct {
	Type        BlockType
	StartLine   int
	EndLine     int
	ParentStart int
	ParentEnd   int
}

// ConditionInfo describes a line holding a short-circuit boolean expression.
// Operands is the number of independently evaluated operands (always >= 2).
type ConditionInfo struct {
	Line     int
	Operands int
}

// FileInfo is the full static metadata for one source file.
type FileInfo struct {
	Kinds      []LineKind
	Functions  []FunctionInfo
	Blocks     []BlockInfo
	Conditions []ConditionInfo
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// funcNameRe captures the name following the function keyword, including
// method names like `M.sub:name`.
var funcNameRe = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_.:]*)`)

// Analyze classifies every line and extracts function, block, and condition
// metadata in a single pass. Stray closers are ignored and blocks left open
// at end-of-file are closed on the last line; analysis never fails.
func Analyze(source string) *FileInfo {
	lines := SplitLines(source)
	info := &FileInfo{}
	if len(lines) == 0 {
		return info
	}

	info.Kinds = make([]LineKind, len(lines))

	var s scanner
	var stack []int    // indices into info.Blocks for open blocks
	parents := []int{} // per-block parent index, -1 for top level
	funcBlocks := map[int]int{}
	pendingDo := false

	openBlock := func(t BlockType, line int) int {
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		info.Blocks = append(info.Blocks, BlockInfo{Type: t, StartLine: line})
		parents = append(parents, parent)
		idx := len(info.Blocks) - 1
		stack = append(stack, idx)
		return idx
	}
	closeBlock := func(line int) {
		if len(stack) == 0 {
			return
		}
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		info.Blocks[idx].EndLine = line
	}

	for i, raw := range lines {
		code := s.scanLine(raw)
		info.Kinds[i] = kindOf(strings.TrimSpace(code))
		lineNo := i + 1

		conditionOps := 0
		for _, loc := range identRe.FindAllStringIndex(code, -1) {
			word := code[loc[0]:loc[1]]
			switch word {
			case "function":
				name := ""
				if m := funcNameRe.FindStringSubmatch(code[loc[1]:]); m != nil {
					name = m[1]
				}
				idx := openBlock(BlockFunction, lineNo)
				info.Functions = append(info.Functions, FunctionInfo{Name: name, StartLine: lineNo})
				funcBlocks[idx] = len(info.Functions) - 1
			case "if":
				openBlock(BlockBranch, lineNo)
			case "while", "for":
				openBlock(BlockLoop, lineNo)
				pendingDo = true
			case "repeat":
				openBlock(BlockLoop, lineNo)
			case "do":
				if pendingDo {
					pendingDo = false
				} else {
					openBlock(BlockOther, lineNo)
				}
			case "end", "until":
				closeBlock(lineNo)
			case "and", "or":
				conditionOps++
			}
		}

		if conditionOps > 0 && info.Kinds[i] != NonExecutable {
			info.Conditions = append(info.Conditions, ConditionInfo{
				Line:     lineNo,
				Operands: conditionOps + 1,
			})
		}
	}

	// Close anything still open at end-of-file on the last line.
	for len(stack) > 0 {
		closeBlock(len(lines))
	}

	// Resolve parent lookup keys now that every block has its final extent.
	for i := range info.Blocks {
		if p := parents[i]; p >= 0 {
			info.Blocks[i].ParentStart = info.Blocks[p].StartLine
			info.Blocks[i].ParentEnd = info.Blocks[p].EndLine
		}
	}

	// Function extents come from their body blocks.
	for blockIdx, funcIdx := range funcBlocks {
		info.Functions[funcIdx].EndLine = info.Blocks[blockIdx].EndLine
	}

	return info
}
