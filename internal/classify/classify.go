// Package classify performs static line classification of Lua source text.
// It distinguishes executable lines from comments and blanks, detects block
// boundaries, and extracts function/block/condition metadata for the engine.
// Classification never fails: malformed source degrades to the best partial
// result so an instrumented program is never taken down by its own coverage.
package classify

import "strings"

// LineKind is the static classification of a single source line.
type LineKind int

const (
	// NonExecutable marks blank lines and lines holding only comment text.
	NonExecutable LineKind = iota

	// Executable marks lines capable of running a statement.
	Executable

	// BlockStart marks lines opening a function or control block.
	BlockStart

	// BlockEnd marks lines holding only block-closing punctuation.
	BlockEnd
)

// String returns a human-readable name for the line kind.
func (k LineKind) String() string {
	switch k {
	case NonExecutable:
		return "non-executable"
	case Executable:
		return "executable"
	case BlockStart:
		return "block-start"
	case BlockEnd:
		return "block-end"
	default:
		return "unknown"
	}
}

// scanner holds the cross-line lexer state: whether the cursor sits inside a
// long-bracket comment or string, and the bracket level that must close it.
type scanner struct {
	inComment    bool
	commentLevel int
	inString     bool
	stringLevel  int
}

// Classify scans source text once, left to right, and returns one LineKind per
// line, indexed from 0 for line 1. An empty file yields an empty slice. A long
// comment that never closes leaves the remaining lines NonExecutable.
func Classify(source string) []LineKind {
	lines := SplitLines(source)
	if len(lines) == 0 {
		return nil
	}

	kinds := make([]LineKind, len(lines))
	var s scanner
	for i, line := range lines {
		code := strings.TrimSpace(s.scanLine(line))
		kinds[i] = kindOf(code)
	}
	return kinds
}

// SplitLines splits source text into lines without the line terminators.
// A single trailing newline does not produce a phantom empty last line.
func SplitLines(source string) []string {
	if source == "" {
		return nil
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.TrimSuffix(source, "\n")
	return strings.Split(source, "\n")
}

// scanLine consumes one line and returns its code text: everything outside
// comments, with string literal bodies collapsed to `""` so their contents
// can never be mistaken for comment delimiters or keywords.
func (s *scanner) scanLine(line string) string {
	var code strings.Builder
	i, n := 0, len(line)

	for i < n {
		if s.inComment {
			j, ok := findLongClose(line, i, s.commentLevel)
			if !ok {
				return code.String()
			}
			i = j
			s.inComment = false
			continue
		}
		if s.inString {
			j, ok := findLongClose(line, i, s.stringLevel)
			if !ok {
				// A long string continues: the line is part of a statement.
				code.WriteString(`""`)
				return code.String()
			}
			i = j
			s.inString = false
			code.WriteString(`""`)
			continue
		}

		c := line[i]
		switch {
		case c == '-' && i+1 < n && line[i+1] == '-':
			if level, j, ok := longOpen(line, i+2); ok {
				if k, closed := findLongClose(line, j, level); closed {
					i = k
					continue
				}
				s.inComment = true
				s.commentLevel = level
				return code.String()
			}
			// Single-line comment: the rest of the line is dead.
			return code.String()
		case c == '\'' || c == '"':
			i = skipQuoted(line, i)
			code.WriteString(`""`)
		case c == '[':
			if level, j, ok := longOpen(line, i); ok {
				if k, closed := findLongClose(line, j, level); closed {
					i = k
					code.WriteString(`""`)
					continue
				}
				s.inString = true
				s.stringLevel = level
				code.WriteString(`""`)
				return code.String()
			}
			code.WriteByte(c)
			i++
		default:
			code.WriteByte(c)
			i++
		}
	}
	return code.String()
}

// longOpen reports whether a long-bracket opener `[=*[` begins at position i.
// It returns the bracket level (the count of '=') and the index just past the
// opener.
func longOpen(line string, i int) (level, next int, ok bool) {
	if i >= len(line) || line[i] != '[' {
		return 0, 0, false
	}
	j := i + 1
	for j < len(line) && line[j] == '=' {
		j++
		level++
	}
	if j < len(line) && line[j] == '[' {
		return level, j + 1, true
	}
	return 0, 0, false
}

// findLongClose searches from position i for a closer `]=*]` of exactly the
// given level and returns the index just past it. Open and close markers must
// match by level, not mere presence.
func findLongClose(line string, i, level int) (next int, ok bool) {
	for ; i < len(line); i++ {
		if line[i] != ']' {
			continue
		}
		j := i + 1
		eq := 0
		for j < len(line) && line[j] == '=' {
			j++
			eq++
		}
		if eq == level && j < len(line) && line[j] == ']' {
			return j + 1, true
		}
	}
	return 0, false
}

// skipQuoted consumes a single-quoted or double-quoted string starting at i
// and returns the index just past the closing quote. Backslash escapes are
// honored. An unterminated quote consumes the rest of the line.
func skipQuoted(line string, i int) int {
	quote := line[i]
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case quote:
			return i + 1
		default:
			i++
		}
	}
	return i
}

// blockCloseTrailing are characters that may follow a lone block closer
// without making the line executable, e.g. `end)`, `end,` or `end;`.
const blockCloseTrailing = " \t)};,"

// kindOf classifies the extracted code text of a single line.
func kindOf(code string) LineKind {
	if code == "" {
		return NonExecutable
	}

	switch strings.TrimRight(code, blockCloseTrailing) {
	case "end", "else", "until", "}":
		return BlockEnd
	case "":
		// Only closing punctuation such as `})` remained.
		return BlockEnd
	}

	fields := strings.Fields(code)
	head := fields[0]
	switch head {
	case "function", "if", "for", "while", "repeat", "do", "elseif":
		return BlockStart
	case "local":
		if len(fields) > 1 && fields[1] == "function" {
			return BlockStart
		}
	}
	if strings.Contains(code, "function(") || strings.Contains(code, "function (") {
		return BlockStart
	}
	return Executable
}
