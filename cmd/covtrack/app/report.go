package app

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covtrack/internal/config"
	"github.com/zjy-dev/covtrack/internal/engine"
	"github.com/zjy-dev/covtrack/internal/hook"
	"github.com/zjy-dev/covtrack/internal/logger"
	"github.com/zjy-dev/covtrack/internal/report"
)

// NewReportCommand creates the "report" subcommand. It is the external
// collaborator side of the engine: it owns all file I/O and hook plumbing,
// replaying a recorded trace through the engine and rendering the summary.
func NewReportCommand() *cobra.Command {
	var (
		srcDir     string
		format     string
		output     string
		configName string
	)

	cmd := &cobra.Command{
		Use:   "report <trace-file>",
		Short: "Replay a trace file and render a coverage report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if configName != "" {
				if err := config.Load(configName, &cfg); err != nil {
					return err
				}
			}
			if cfg.LogLevel != "" {
				logger.SetLevel(cfg.LogLevel)
			}

			session, err := engine.Start(cfg)
			if err != nil {
				return err
			}
			// Release the process-wide session slot on every exit path.
			defer func() {
				if session.State() == engine.StateRunning {
					_ = session.Stop()
				}
			}()

			if err := registerSources(session, srcDir); err != nil {
				return err
			}
			if err := replayTrace(session, args[0]); err != nil {
				return err
			}
			if err := session.Stop(); err != nil {
				return err
			}

			name := format
			if name == "" {
				name = cfg.ReportFormat
			}
			if name == "" {
				name = "text"
			}
			formatter, err := report.NewRegistry().Get(name)
			if err != nil {
				return err
			}
			rendered, err := formatter.Render(session.Summary())
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(rendered)
				return err
			}
			return os.WriteFile(output, rendered, 0644)
		},
	}

	cmd.Flags().StringVar(&srcDir, "src", ".", "directory scanned for .lua sources")
	cmd.Flags().StringVar(&format, "format", "", "report format (text, json, markdown)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&configName, "config", "", "config file base name under configs/")

	return cmd
}

// registerSources walks dir and registers every .lua file with the session.
// Unreadable files are logged and skipped so one bad file cannot sink the run.
func registerSources(session *engine.Session, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".lua" {
			return nil
		}
		source, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("skipping unreadable source %s: %v", path, readErr)
			return nil
		}
		logger.Debug("registering %s", path)
		return session.RegisterFile(filepath.ToSlash(path), string(source))
	})
}

// replayTrace feeds every event in the trace file through a hook sink.
// Malformed lines are logged and skipped: a truncated trace still yields the
// best partial report.
func replayTrace(session *engine.Session, tracePath string) error {
	f, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer f.Close()

	sink := hook.NewSink(session)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		event, err := parseTraceLine(text)
		if err != nil {
			logger.Warn("trace line %d: %v", lineNo, err)
			continue
		}
		if err := sink.Apply(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseTraceLine parses one trace event. Formats:
//
//	exec  <path> <line>
//	cover <path> <line>
//	cond  <path> <line> <index> <true|false>
func parseTraceLine(text string) (hook.Event, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return hook.Event{}, fmt.Errorf("malformed event %q", text)
	}

	line, err := strconv.Atoi(fields[2])
	if err != nil {
		return hook.Event{}, fmt.Errorf("bad line number %q", fields[2])
	}
	event := hook.Event{Path: fields[1], Line: line}

	switch fields[0] {
	case "exec":
		event.Kind = hook.KindExecution
	case "cover":
		event.Kind = hook.KindAssertion
	case "cond":
		if len(fields) != 5 {
			return hook.Event{}, fmt.Errorf("malformed cond event %q", text)
		}
		index, err := strconv.Atoi(fields[3])
		if err != nil {
			return hook.Event{}, fmt.Errorf("bad operand index %q", fields[3])
		}
		outcome, err := strconv.ParseBool(fields[4])
		if err != nil {
			return hook.Event{}, fmt.Errorf("bad outcome %q", fields[4])
		}
		event.Kind = hook.KindCondition
		event.Index = index
		event.Outcome = outcome
	default:
		return hook.Event{}, fmt.Errorf("unknown event kind %q", fields[0])
	}
	return event, nil
}
