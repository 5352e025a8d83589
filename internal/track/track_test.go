package track

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covtrack/internal/classify"
)

func fourExecutableKinds() []classify.LineKind {
	// Lines 1, 2, 5, 10 executable, the rest non-executable.
	kinds := make([]classify.LineKind, 10)
	for _, l := range []int{1, 2, 5, 10} {
		kinds[l-1] = classify.Executable
	}
	return kinds
}

func TestRecordExecution(t *testing.T) {
	fs := NewFileStore(fourExecutableKinds())

	assert.False(t, fs.WasExecuted(1))

	fs.RecordExecution(1)
	fs.RecordExecution(1)
	fs.RecordExecution(2)

	assert.True(t, fs.WasExecuted(1))
	assert.True(t, fs.WasExecuted(2))
	assert.False(t, fs.WasExecuted(5))

	snap := fs.Snapshot()
	assert.Equal(t, uint64(2), snap[1].Count)
	assert.Equal(t, uint64(1), snap[2].Count)
}

func TestRecordExecution_NonExecutableIsAnomalous(t *testing.T) {
	fs := NewFileStore(fourExecutableKinds())

	fs.RecordExecution(3) // classified non-executable
	fs.RecordExecution(3)
	fs.RecordExecution(42) // past end-of-file

	assert.Equal(t, uint64(3), fs.Anomalous())
	assert.True(t, fs.WasExecuted(3), "anomalous executions are still recorded")
	assert.False(t, fs.WasCovered(3))
}

func TestMarkCovered_Idempotent(t *testing.T) {
	fs := NewFileStore(fourExecutableKinds())

	fs.RecordExecution(1)
	fs.MarkCovered(1)
	fs.MarkCovered(1)
	fs.MarkCovered(1)

	assert.True(t, fs.WasCovered(1))
	snap := fs.Snapshot()
	assert.Equal(t, uint64(1), snap[1].Count, "repeated marks never inflate the count")
}

func TestMarkCovered_ImplicitExecution(t *testing.T) {
	fs := NewFileStore(fourExecutableKinds())

	fs.MarkCovered(5)

	snap := fs.Snapshot()
	require.Contains(t, snap, 5)
	assert.True(t, snap[5].Covered)
	assert.Equal(t, uint64(1), snap[5].Count, "covered implies at least one execution")
}

func TestCoveredImpliesExecuted_Invariant(t *testing.T) {
	fs := NewFileStore(fourExecutableKinds())

	fs.RecordExecution(2)
	fs.MarkCovered(2)
	fs.MarkCovered(10)

	for line, snap := range fs.Snapshot() {
		if snap.Covered {
			assert.GreaterOrEqual(t, snap.Count, uint64(1), "line %d", line)
		}
	}
}

// Two goroutines hammering the same line must land on an exact total.
func TestRecordExecution_ConcurrentExactCount(t *testing.T) {
	kinds := make([]classify.LineKind, 20)
	for i := range kinds {
		kinds[i] = classify.Executable
	}
	fs := NewFileStore(kinds)

	const perWorker = 1000
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				fs.RecordExecution(7)
			}
		}()
	}
	wg.Wait()

	snap := fs.Snapshot()
	assert.Equal(t, uint64(2*perWorker), snap[7].Count)
}

func TestConcurrentMarkAndExecute_InvariantHolds(t *testing.T) {
	kinds := []classify.LineKind{classify.Executable}
	fs := NewFileStore(kinds)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				fs.RecordExecution(1)
				fs.MarkCovered(1)
			}
		}()
	}
	wg.Wait()

	snap := fs.Snapshot()
	assert.True(t, snap[1].Covered)
	assert.GreaterOrEqual(t, snap[1].Count, uint64(800))
}

func TestLineIDString(t *testing.T) {
	id := LineID{File: "src/core.lua", Line: 12}
	assert.Equal(t, "src/core.lua:12", id.String())
}
