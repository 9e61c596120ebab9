// Package cli defines the Cobra command tree for the heartline CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	logLevelFlag string
	verboseFlag  bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "heartline",
	Short: "Companion reply engine with persistent profiles and memories",
	Long: `Heartline turns a character backstory into a companion profile and answers
messages in that character's voice.

Replies come from a tiered pipeline: a generative model when one is configured,
a rule-based composer that weaves in remembered moments, and a static fallback.

Run 'heartline init' to get started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.ErrOrStderr())
	},
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(
		newInitCmd(),
		newSetupCmd(),
		newProfileCmd(),
		newImportCmd(),
		newWatchCmd(),
		newChatCmd(),
		newReplyCmd(),
		newRecallCmd(),
		newHistoryCmd(),
		newPruneCmd(),
		newStatusCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("heartline %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
