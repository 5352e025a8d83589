package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covtrack/internal/hook"
)

func TestParseTraceLine(t *testing.T) {
	event, err := parseTraceLine("exec src/mod.lua 12")
	require.NoError(t, err)
	assert.Equal(t, hook.Event{Path: "src/mod.lua", Line: 12, Kind: hook.KindExecution}, event)

	event, err = parseTraceLine("cover src/mod.lua 12")
	require.NoError(t, err)
	assert.Equal(t, hook.KindAssertion, event.Kind)

	event, err = parseTraceLine("cond src/mod.lua 4 1 true")
	require.NoError(t, err)
	assert.Equal(t, hook.KindCondition, event.Kind)
	assert.Equal(t, 1, event.Index)
	assert.True(t, event.Outcome)
}

func TestParseTraceLine_Malformed(t *testing.T) {
	for _, text := range []string{
		"exec src/mod.lua",
		"exec src/mod.lua twelve",
		"cond src/mod.lua 4 1",
		"cond src/mod.lua 4 one true",
		"jump src/mod.lua 4",
	} {
		_, err := parseTraceLine(text)
		assert.Error(t, err, "input %q", text)
	}
}

func TestReportCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	source := "x = 1\n-- note\ny = 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mod.lua"), []byte(source), 0644))

	srcPath := filepath.ToSlash(filepath.Join(dir, "mod.lua"))
	trace := "# recorded by the test runner\n" +
		"exec " + srcPath + " 1\n" +
		"cover " + srcPath + " 1\n" +
		"exec " + srcPath + " 3\n"
	tracePath := filepath.Join(dir, "run.trace")
	require.NoError(t, os.WriteFile(tracePath, []byte(trace), 0644))

	var out bytes.Buffer
	cmd := NewCovtrackCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"report", tracePath, "--src", dir, "--format", "text"})

	require.NoError(t, cmd.Execute())

	text := out.String()
	assert.Contains(t, text, "mod.lua")
	assert.Contains(t, text, "2 executable, 2 executed, 1 covered")
}

func TestReportCommand_MissingTrace(t *testing.T) {
	cmd := NewCovtrackCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "does-not-exist.trace", "--src", t.TempDir()})

	assert.Error(t, cmd.Execute())
}
