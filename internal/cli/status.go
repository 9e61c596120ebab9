package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored profiles, conversations and reply tier setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.store.Stats(cmd.Context(), rt.dbPath)
			if err != nil {
				return err
			}

			pl := rt.pipeline()
			defer pl.Close()
			ps := pl.Stats()

			fmt.Printf("\nProfiles: %d\n", st.Profiles)
			fmt.Printf("Memories: %d\n", st.Memories)
			fmt.Printf("Sessions: %d (%d turns)\n", st.Sessions, st.Turns)
			if !st.LastUsed.IsZero() {
				fmt.Printf("Last use: %s\n", st.LastUsed.Format("2006-01-02 15:04"))
			}
			fmt.Printf("Tiers:    %s\n", strings.Join(ps.Tiers, " -> "))
			fmt.Printf("Model:    %s\n", describeModel(rt))
			fmt.Printf("Recall:   %s\n", describeRecall(rt))
			fmt.Printf("Cache:    up to %d replies, window %d turns\n", rt.cfg.Reply.CacheSize, ps.WindowCap)
			fmt.Printf("Events:   %s\n", rt.cfg.Telemetry.Sink)
			fmt.Printf("DB size:  %s\n", formatBytes(st.DBSizeBytes))
			fmt.Println()

			return nil
		},
	}
}

func describeModel(rt *runtime) string {
	if !rt.cfg.Reply.GenerativeEnabled {
		return "off (rule-based replies only)"
	}
	llm, err := buildLLM(rt.cfg)
	if err != nil {
		return fmt.Sprintf("unavailable (%v)", err)
	}
	info := llm.Info()
	return fmt.Sprintf("%s (%s)", info.Name, info.Provider)
}

func describeRecall(rt *runtime) string {
	if !rt.vectors.Enabled() {
		return "keyword"
	}
	return "semantic via " + rt.cfg.Embedder + ", keyword fallback"
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
