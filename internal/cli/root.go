// Package cli implements the ganbari command-line interface using Cobra.
// One-shot commands open the local store directly; serve runs the API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	json    bool
	verbose bool
}

func newRootCmd(version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ganbari",
		Short: "ganbari: household activity points and status engine",
		Long: `ganbari records children's daily activities, awards points with streak
bonuses, runs weekly evaluations and daily decay, and hands out a daily
omikuji login bonus.

Data lives in $GANBARI_HOME (default ~/.ganbari).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to stderr")

	root.AddCommand(
		newServeCmd(),
		newRecordCmd(opts),
		newCancelCmd(opts),
		newLogsCmd(opts),
		newStatusCmd(opts),
		newBonusCmd(opts),
		newPointsCmd(opts),
		newEvaluateCmd(opts),
		newDecayCmd(opts),
		newChildCmd(opts),
		newActivityCmd(opts),
		newSeedCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
