// Package hook is the narrow bridge between external instrumentation and the
// coverage engine. An interpreter debug hook, a source rewriter, or manual
// call sites push line events here; the engine itself knows nothing about how
// hooks are installed or removed.
package hook

import (
	"errors"
	"fmt"
)

// Kind identifies the kind of a line event.
type Kind int

const (
	// KindExecution reports that a line's statement ran.
	KindExecution Kind = iota

	// KindAssertion reports that a test assertion validated a line.
	KindAssertion

	// KindCondition reports the outcome of one short-circuit operand.
	KindCondition
)

// String returns the event kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindExecution:
		return "exec"
	case KindAssertion:
		return "cover"
	case KindCondition:
		return "cond"
	default:
		return "unknown"
	}
}

// Event is one observation pushed by the instrumentation layer. Index and
// Outcome are meaningful only for KindCondition.
type Event struct {
	Path    string
	Line    int
	Kind    Kind
	Index   int
	Outcome bool
}

// Recorder is the slice of the coverage engine the hook layer needs. The
// engine's Session satisfies it.
type Recorder interface {
	RecordExecution(path string, line int) error
	MarkCovered(path string, line int) error
	RecordCondition(path string, line, index int, outcome bool) error
}

// Sink applies pushed events to a recorder.
type Sink struct {
	rec Recorder
}

// NewSink creates a sink feeding the given recorder.
func NewSink(rec Recorder) *Sink {
	return &Sink{rec: rec}
}

// Apply dispatches one event to the recorder.
func (s *Sink) Apply(e Event) error {
	switch e.Kind {
	case KindExecution:
		return s.rec.RecordExecution(e.Path, e.Line)
	case KindAssertion:
		return s.rec.MarkCovered(e.Path, e.Line)
	case KindCondition:
		return s.rec.RecordCondition(e.Path, e.Line, e.Index, e.Outcome)
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind)
	}
}

// LineResolver resolves the source position an assertion was called from.
// Implementations belong to the assertion framework; stack walking is not a
// coverage concern.
type LineResolver interface {
	// CallerLine returns the file and line at the given stack depth.
	CallerLine(depth int) (file string, line int, ok bool)
}

// ErrNoCaller is returned when the resolver cannot see the requested frame.
var ErrNoCaller = errors.New("no caller at requested stack depth")

// MarkCallerCovered marks the line an assertion was invoked from as covered.
// It is meant to be called by the assertion machinery itself, so every
// successful assertion validates its own call site.
func MarkCallerCovered(rec Recorder, resolver LineResolver, depth int) error {
	file, line, ok := resolver.CallerLine(depth)
	if !ok {
		return ErrNoCaller
	}
	return rec.MarkCovered(file, line)
}
