package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/reply"
)

func newReplyCmd() *cobra.Command {
	var (
		asJSON    bool
		sessionID string
		history   int
	)

	cmd := &cobra.Command{
		Use:   "reply <profile> <message>",
		Short: "Get a single reply from a companion",
		Long: `Run one message through the reply pipeline and print the answer.

With --session the exchange is stored and the session's recent turns are used
as conversation context.

Examples:
  heartline reply Mira "do you remember the lake?"
  heartline reply Mira "I miss you" --json
  heartline reply Mira "good morning" --session 5f0c...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			message := strings.Join(args[1:], " ")

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProfile(ctx, args[0])
			if err != nil {
				return err
			}
			_ = rt.store.TouchProfile(ctx, p.ID)

			pl := rt.pipeline()
			defer pl.Close()

			switch {
			case sessionID != "":
				turns, err := rt.store.SessionTurns(ctx, sessionID)
				if err != nil {
					return err
				}
				pl.Restore(turns)
			case history > 0:
				turns, err := rt.store.RecentTurns(ctx, p.ID, history)
				if err != nil {
					return err
				}
				pl.Restore(turns)
			}

			res := pl.Reply(ctx, message, reply.Context{Profile: &p, History: pl.History()})

			if sessionID != "" && strings.TrimSpace(message) != "" {
				if err := saveExchange(ctx, rt.store, sessionID, p.ID, message, res); err != nil {
					rt.logger.Warn("could not store turn", "session", sessionID, "err", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Text)
			rt.logger.Debug("reply served", "method", res.ReportedMethod(), "hint", res.EmotionHint)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "store the exchange under this session id")
	cmd.Flags().IntVar(&history, "history", 0, "use the profile's last N stored turns as context")

	return cmd
}

func newRecallCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "recall <profile> <query>",
		Short: "Show the memories most relevant to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args[1:], " ")

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := rt.resolveProfile(ctx, args[0])
			if err != nil {
				return err
			}

			hits := rt.orch.Recall(ctx, p, query, topK)
			if len(hits) == 0 {
				fmt.Println("No matching memories.")
				return nil
			}
			for i, h := range hits {
				fmt.Printf("%d. %s\n", i+1, h)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 2, "maximum memories to show")
	return cmd
}
