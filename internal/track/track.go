// Package track holds the dynamic per-line coverage records. It provides the
// execution tracker and the coverage marker: execution counting is the hot
// instrumentation path and is lock-free after record creation, while cover
// marking is the cold assertion path and may take the store lock.
package track

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zjy-dev/covtrack/internal/classify"
)

// LineID uniquely identifies a line of code.
type LineID struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String returns a string representation of LineID for use as map keys.
func (l LineID) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LineRecord is the dynamic state of one source line. The execution count and
// covered flag are independently meaningful: a line can run many times without
// any assertion ever validating its effect.
type LineRecord struct {
	execCount atomic.Uint64
	covered   atomic.Bool
	kind      classify.LineKind
}

// Count returns how many times the line executed.
func (r *LineRecord) Count() uint64 { return r.execCount.Load() }

// Covered reports whether at least one assertion validated the line.
func (r *LineRecord) Covered() bool { return r.covered.Load() }

// Kind returns the line's static classification, denormalized at creation.
func (r *LineRecord) Kind() classify.LineKind { return r.kind }

// FileStore owns the LineRecords of a single registered file. Creation of a
// record takes the write lock once; every later execution event for that line
// is a single atomic increment.
type FileStore struct {
	mu      sync.RWMutex
	records map[int]*LineRecord
	kinds   []classify.LineKind

	// anomalous counts executions recorded against lines the classifier
	// considers non-executable, including lines past end-of-file. Such calls
	// are accepted, never rejected: misclassification must not crash the
	// program under observation.
	anomalous atomic.Uint64
}

// NewFileStore creates a store for a file whose static classification is kinds
// (index 0 holds line 1).
func NewFileStore(kinds []classify.LineKind) *FileStore {
	return &FileStore{
		records: make(map[int]*LineRecord),
		kinds:   kinds,
	}
}

// kindAt returns the classification for a 1-indexed line. Lines outside the
// classified range count as non-executable so executions there surface as
// anomalies instead of silently widening the file.
func (f *FileStore) kindAt(line int) classify.LineKind {
	if line < 1 || line > len(f.kinds) {
		return classify.NonExecutable
	}
	return f.kinds[line-1]
}

// record returns the LineRecord for a line, creating it on first sight.
func (f *FileStore) record(line int) *LineRecord {
	f.mu.RLock()
	rec, ok := f.records[line]
	f.mu.RUnlock()
	if ok {
		return rec
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok = f.records[line]; ok {
		return rec
	}
	rec = &LineRecord{kind: f.kindAt(line)}
	f.records[line] = rec
	return rec
}

// RecordExecution increments the execution count for a line, creating the
// record first if absent. Non-executable lines are accepted and counted as
// anomalous executions.
func (f *FileStore) RecordExecution(line int) {
	rec := f.record(line)
	rec.execCount.Add(1)
	if rec.kind == classify.NonExecutable {
		f.anomalous.Add(1)
	}
}

// MarkCovered marks a line as validated by an assertion. If the line was never
// recorded as executed, one execution is recorded implicitly first, so covered
// implies an execution count of at least one at every observable moment.
// Marking an already-covered line is a no-op.
func (f *FileStore) MarkCovered(line int) {
	rec := f.record(line)

	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.covered.Load() {
		return
	}
	if rec.execCount.Load() == 0 {
		rec.execCount.Add(1)
		if rec.kind == classify.NonExecutable {
			f.anomalous.Add(1)
		}
	}
	rec.covered.Store(true)
}

// WasExecuted reports whether the line executed at least once. Unknown lines
// are simply unexecuted, not errors.
func (f *FileStore) WasExecuted(line int) bool {
	f.mu.RLock()
	rec, ok := f.records[line]
	f.mu.RUnlock()
	return ok && rec.Count() > 0
}

// WasCovered reports whether at least one assertion validated the line.
func (f *FileStore) WasCovered(line int) bool {
	f.mu.RLock()
	rec, ok := f.records[line]
	f.mu.RUnlock()
	return ok && rec.Covered()
}

// Anomalous returns the count of executions recorded on non-executable lines.
func (f *FileStore) Anomalous() uint64 {
	return f.anomalous.Load()
}

// LineSnapshot is a point-in-time copy of one line's dynamic state.
type LineSnapshot struct {
	Line    int
	Count   uint64
	Covered bool
	Kind    classify.LineKind
}

// Snapshot copies the dynamic state of every recorded line.
func (f *FileStore) Snapshot() map[int]LineSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[int]LineSnapshot, len(f.records))
	for line, rec := range f.records {
		out[line] = LineSnapshot{
			Line:    line,
			Count:   rec.Count(),
			Covered: rec.Covered(),
			Kind:    rec.kind,
		}
	}
	return out
}
