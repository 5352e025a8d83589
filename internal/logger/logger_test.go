package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func resetLogger() {
	defaultLogger = nil
	once = *new(sync.Once)
}

func TestLevelFiltering(t *testing.T) {
	resetLogger()
	var buf bytes.Buffer

	Init("warn")
	SetOutput(&buf)
	SetColorEnable(false)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message not found")
	}
	if !strings.Contains(out, "error message") {
		t.Error("error message not found")
	}
}

func TestColorDisabled(t *testing.T) {
	resetLogger()
	var buf bytes.Buffer

	Init("debug")
	SetOutput(&buf)
	SetColorEnable(false)

	Info("plain message")

	if strings.Contains(buf.String(), "\033[") {
		t.Error("output contains ANSI color codes with color disabled")
	}
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Error("level tag missing from output")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
