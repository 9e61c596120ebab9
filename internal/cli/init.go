package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the heartline config and database",
		Long: `Write a default config to ~/.config/heartline/config.toml (unless one exists)
and create the SQLite database in the data directory.

Set HEARTLINE_HOME to use a different config directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := config.GlobalConfigPath()
			if err != nil {
				return fmt.Errorf("locate config: %w", err)
			}

			_, statErr := os.Stat(cfgPath)
			switch {
			case os.IsNotExist(statErr) || force:
				if err := config.SaveGlobal(config.DefaultGlobal()); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				fmt.Printf("Config written to %s\n", cfgPath)
			default:
				fmt.Printf("Config already exists at %s\n", cfgPath)
			}

			gcfg, err := config.LoadGlobal()
			if err != nil {
				return err
			}
			dbPath, err := config.DBPath(gcfg)
			if err != nil {
				return err
			}

			rt, err := openRuntimeAt(gcfg, dbPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Printf("Database ready at %s\n", dbPath)
			if !rt.db.VectorsEnabled() {
				fmt.Fprintln(os.Stderr, "  Note: sqlite-vec unavailable; recall will use keyword matching only.")
			}

			fmt.Println()
			fmt.Println("Heartline initialized.")
			fmt.Println(`Tip: Run "heartline profile create --name <name> --file backstory.md" to add a companion.`)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config with defaults")

	return cmd
}
