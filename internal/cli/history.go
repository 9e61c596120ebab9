package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/export"
	"github.com/heartline/heartline/internal/memory"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and export stored conversations",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryExportCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <profile>",
		Short: "List a profile's sessions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sessions, err := rt.store.ListSessions(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions recorded.")
				return nil
			}
			for _, s := range sessions {
				fmt.Printf("%s  %s  %d turns\n", s.ID, s.LastAt.Format("2006-01-02 15:04"), s.Turns)
			}
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	var (
		format    string
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "export <profile>",
		Short: "Export conversations as JSON or Markdown",
		Long: `Render a profile's stored conversations. Output is written to stdout, so
pipe it to a file. JSON exports can be loaded back with 'heartline chat --load'.

Examples:
  heartline history export Mira > mira.md
  heartline history export Mira --format json > mira.json
  heartline history export Mira --session 5f0c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, ok := export.Get(strings.ToLower(format))
			if !ok {
				return fmt.Errorf("unknown format %q; valid formats: %s",
					format, strings.Join(export.ValidFormats(), ", "))
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := collectExport(cmd.Context(), rt.store, p, sessionID, limit)
			if err != nil {
				return err
			}

			output, err := exporter.Export(data)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			_, err = os.Stdout.WriteString(output)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: json, markdown")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "export only this session")
	cmd.Flags().IntVar(&limit, "limit", 0, "export at most N most recent sessions (0 = all)")

	return cmd
}

// collectExport gathers a profile's sessions, newest first, with their turns.
func collectExport(ctx context.Context, store *memory.Store, p memory.Profile, sessionID string, limit int) (export.ExportData, error) {
	summaries, err := store.ListSessions(ctx, p.ID)
	if err != nil {
		return export.ExportData{}, err
	}

	data := export.ExportData{Profile: p}
	for _, s := range summaries {
		if sessionID != "" && s.ID != sessionID {
			continue
		}
		if limit > 0 && len(data.Sessions) >= limit {
			break
		}
		turns, err := store.SessionTurns(ctx, s.ID)
		if err != nil {
			return data, err
		}
		data.Sessions = append(data.Sessions, export.Session{Summary: s, Turns: turns})
	}
	if sessionID != "" && len(data.Sessions) == 0 {
		return data, fmt.Errorf("session %q not found for %s", sessionID, p.Name)
	}
	return data, nil
}
