package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	var (
		olderThanDays int
		keepLatest    int
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old conversation turns to reduce database size",
		Long: `Prune stored conversation turns. Profiles and their memories are never pruned.

By default, keeps the latest 100 sessions. Use flags to customise:

  heartline prune                    # keep latest 100 sessions
  heartline prune --older-than 30    # delete turns older than 30 days
  heartline prune --keep 50          # keep only the latest 50 sessions
  heartline prune --dry-run          # preview what would be deleted`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			before, err := rt.store.Stats(ctx, rt.dbPath)
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Printf("Current: %d sessions, %d turns\n", before.Sessions, before.Turns)
				if olderThanDays > 0 {
					fmt.Printf("Would delete turns older than %d days\n", olderThanDays)
				} else {
					fmt.Printf("Would keep latest %d sessions\n", keepLatest)
				}
				return nil
			}

			var pruned int
			if olderThanDays > 0 {
				pruned, err = rt.store.PruneTurns(ctx, olderThanDays)
			} else {
				pruned, err = rt.store.PruneSessionsKeepLatest(ctx, keepLatest)
			}
			if err != nil {
				return err
			}

			after, _ := rt.store.Stats(ctx, rt.dbPath)
			fmt.Printf("Pruned %d turns (%d -> %d sessions)\n", pruned, before.Sessions, after.Sessions)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete turns older than N days")
	cmd.Flags().IntVar(&keepLatest, "keep", 100, "Keep only the latest N sessions")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview what would be pruned without deleting")

	return cmd
}
