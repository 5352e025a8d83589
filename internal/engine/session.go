// Package engine owns the coverage session: the per-file data model, the
// public tracking API, and summary aggregation. It receives line events from
// an external instrumentation layer and contains no hook-installation logic.
package engine

import (
	"errors"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zjy-dev/covtrack/internal/classify"
	"github.com/zjy-dev/covtrack/internal/config"
	"github.com/zjy-dev/covtrack/internal/logger"
	"github.com/zjy-dev/covtrack/internal/track"
)

// State is the session lifecycle state. Transitions run one way:
// Running -> Stopped.
type State int32

const (
	StateRunning State = iota + 1
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionActive is returned by Start while another session is running.
	ErrSessionActive = errors.New("a coverage session is already active in this process")

	// ErrSessionClosed is returned by mutation calls after Stop. Data is never
	// silently discarded past the stop boundary.
	ErrSessionClosed = errors.New("coverage session is stopped")
)

// Only one session may be live-instrumented per process. Detached sessions
// (tests, embedding) bypass the slot.
var (
	activeMu sync.Mutex
	active   *Session
)

type condKey struct {
	Line  int
	Index int
}

type condCounts struct {
	trueCount  atomic.Uint64
	falseCount atomic.Uint64
}

// fileState bundles everything the session knows about one registered file:
// its source lines, the cached static analysis, and the dynamic records.
type fileState struct {
	path   string
	source string
	lines  []string
	info   *classify.FileInfo
	store  *track.FileStore
	conds  map[condKey]*condCounts
	rule   string
}

// Session is a coverage session handle. All methods are safe for concurrent
// use. Tracking calls are designed for hot instrumentation paths: no I/O, no
// global lock on the execution-count path.
type Session struct {
	cfg config.Config

	// barrier serializes Stop against in-flight tracking calls: trackers hold
	// the read side for the duration of a call, Stop takes the write side, so
	// a summary taken after Stop is complete and stable.
	barrier sync.RWMutex
	state   atomic.Int32

	mu    sync.RWMutex
	files map[string]*fileState

	// faults counts internal tracking failures. They are reported in the
	// summary instead of ever propagating into the program under observation.
	faults atomic.Uint64

	holdsSlot bool
}

// Start validates the configuration and starts the single process-wide
// session. It fails with ErrSessionActive while another started session runs.
func Start(cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return nil, ErrSessionActive
	}

	s := newSession(cfg)
	s.holdsSlot = true
	active = s
	logger.Info("coverage session started (blocks=%v conditions=%v)", cfg.TrackBlocks, cfg.TrackConditions)
	return s, nil
}

// NewDetached creates a session that does not claim the process-wide slot.
// Any number of detached sessions may coexist; none of them is visible to
// live instrumentation.
func NewDetached(cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newSession(cfg), nil
}

func newSession(cfg config.Config) *Session {
	s := &Session{
		cfg:   cfg,
		files: make(map[string]*fileState),
	}
	s.state.Store(int32(StateRunning))
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// normalizePath gives every caller-supplied path a canonical spelling so the
// hook, the assertion layer, and registration all agree on file identity.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(p)
}

// RegisterFile makes a file's source known to the session. Registration is
// idempotent; re-registering with different text replaces the cached
// classification and resets the file's dynamic records wholesale. Files the
// configuration excludes are skipped without error.
func (s *Session) RegisterFile(filePath, source string) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()
	if s.State() != StateRunning {
		return ErrSessionClosed
	}

	norm := normalizePath(filePath)
	included, rule := s.cfg.Decide(norm)
	if !included {
		logger.Debug("skipping %s (%s)", norm, rule)
		return nil
	}

	// Re-registering identical text is a no-op; only different text replaces
	// the classification and resets the file's dynamic records.
	s.mu.RLock()
	existing := s.files[norm]
	s.mu.RUnlock()
	if existing != nil && existing.source == source {
		return nil
	}

	info := classify.Analyze(source)
	fs := &fileState{
		path:   norm,
		source: source,
		lines:  classify.SplitLines(source),
		info:   info,
		store:  track.NewFileStore(info.Kinds),
		rule:   rule,
	}
	if s.cfg.TrackConditions {
		fs.conds = make(map[condKey]*condCounts)
		for _, c := range info.Conditions {
			for idx := 0; idx < c.Operands; idx++ {
				fs.conds[condKey{Line: c.Line, Index: idx}] = &condCounts{}
			}
		}
	}

	s.mu.Lock()
	s.files[norm] = fs
	s.mu.Unlock()
	return nil
}

// lookup returns the state for a registered file, or nil.
func (s *Session) lookup(filePath string) *fileState {
	s.mu.RLock()
	fs := s.files[normalizePath(filePath)]
	s.mu.RUnlock()
	return fs
}

// RecordExecution records that a line executed. Calls for unregistered or
// excluded files are accepted and ignored, so instrumentation hooks need not
// pre-filter. The only error is ErrSessionClosed after Stop.
func (s *Session) RecordExecution(filePath string, line int) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()
	if s.State() != StateRunning {
		return ErrSessionClosed
	}
	defer s.absorbFault()

	if fs := s.lookup(filePath); fs != nil {
		fs.store.RecordExecution(line)
	}
	return nil
}

// MarkCovered records that an assertion validated a line. If the line was
// never seen executing, one execution is recorded implicitly first. Marking
// is idempotent.
func (s *Session) MarkCovered(filePath string, line int) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()
	if s.State() != StateRunning {
		return ErrSessionClosed
	}
	defer s.absorbFault()

	if fs := s.lookup(filePath); fs != nil {
		fs.store.MarkCovered(line)
	}
	return nil
}

// RecordCondition records the outcome of one short-circuit operand on a line.
// Events for operands the static analysis never saw are absorbed as internal
// faults rather than rejected.
func (s *Session) RecordCondition(filePath string, line, index int, outcome bool) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()
	if s.State() != StateRunning {
		return ErrSessionClosed
	}
	defer s.absorbFault()

	fs := s.lookup(filePath)
	if fs == nil || fs.conds == nil {
		return nil
	}
	cc, ok := fs.conds[condKey{Line: line, Index: index}]
	if !ok {
		s.faults.Add(1)
		return nil
	}
	if outcome {
		cc.trueCount.Add(1)
	} else {
		cc.falseCount.Add(1)
	}
	return nil
}

// absorbFault converts a panic inside a tracking call into a counted anomaly.
// A bug in coverage tracking must never crash the program under test.
func (s *Session) absorbFault() {
	if r := recover(); r != nil {
		s.faults.Add(1)
		logger.Error("tracking fault absorbed: %v", r)
	}
}

// WasExecuted reports whether a line executed. False for unknown files and
// lines: absence of data is meaningful, not an error.
func (s *Session) WasExecuted(filePath string, line int) bool {
	fs := s.lookup(filePath)
	return fs != nil && fs.store.WasExecuted(line)
}

// WasCovered reports whether an assertion validated a line.
func (s *Session) WasCovered(filePath string, line int) bool {
	fs := s.lookup(filePath)
	return fs != nil && fs.store.WasCovered(line)
}

// Stop finalizes the session. It blocks until every tracking call already in
// progress has completed, so a summary taken afterwards is complete. Further
// mutation fails with ErrSessionClosed. Stop cannot be undone.
func (s *Session) Stop() error {
	s.barrier.Lock()
	defer s.barrier.Unlock()

	if s.State() != StateRunning {
		return ErrSessionClosed
	}
	s.state.Store(int32(StateStopped))

	if s.holdsSlot {
		activeMu.Lock()
		if active == s {
			active = nil
		}
		activeMu.Unlock()
	}
	logger.Info("coverage session stopped")
	return nil
}
