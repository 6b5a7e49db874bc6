package main

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmynk/groupsplit/pkg/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	var noColor bool

	root := &cobra.Command{
		Use:           "splitctl",
		Short:         "Split shared expenses and work out who pays whom",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logging.ParseLevel(logLevel), "text"))
			if noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newSettleCmd(),
		newBalancesCmd(),
		newConvertCmd(),
		newCurrenciesCmd(),
		newHashPasswordCmd(),
	)
	return root
}
