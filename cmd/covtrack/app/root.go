package app

import (
	"github.com/spf13/cobra"

	"github.com/zjy-dev/covtrack/internal/logger"
)

// NewCovtrackCommand creates the root command for the covtrack tool.
func NewCovtrackCommand() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "covtrack",
		Short: "Line coverage tracking for Lua test runs.",
		Long: `Covtrack replays recorded execution traces against Lua sources and
reports line, function, block, and condition coverage, distinguishing lines
that merely executed from lines validated by a test assertion.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel)
			logger.SetLevel(logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(NewReportCommand())

	return cmd
}
