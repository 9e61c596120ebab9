package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/heartline/heartline/internal/export"
	"github.com/heartline/heartline/internal/memory"
	"github.com/heartline/heartline/internal/reply"
)

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		loadFile  string
		noSave    bool
	)

	cmd := &cobra.Command{
		Use:   "chat <profile>",
		Short: "Talk with a companion interactively",
		Long: `Start a conversation with a profile. Every exchange is stored under a
session id so it can be resumed or exported later.

Commands inside the chat:
  /clear   forget the recent conversation window
  /stats   show pipeline counters
  /quit    leave (Ctrl-D works too)

Examples:
  heartline chat Mira
  heartline chat Mira --session 5f0c...   # resume a stored session
  heartline chat Mira --load saved.json   # resume from a JSON export`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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
			case loadFile != "":
				turns, err := loadSavedTurns(loadFile)
				if err != nil {
					return err
				}
				pl.Restore(turns)
			case sessionID != "":
				turns, err := rt.store.SessionTurns(ctx, sessionID)
				if err != nil {
					return err
				}
				pl.Restore(turns)
			}
			if sessionID == "" {
				sessionID = memory.NewSessionID()
			}

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			if interactive {
				fmt.Printf("Talking with %s (session %s). Type /quit to leave.\n\n", p.Name, sessionID)
			}

			scanner := newLineScanner(os.Stdin)
			for {
				if interactive {
					fmt.Print("> ")
				}
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())

				switch line {
				case "/quit", "/exit":
					return nil
				case "/clear":
					pl.ClearContext()
					fmt.Println("(conversation window cleared)")
					continue
				case "/stats":
					printPipelineStats(pl.Stats())
					continue
				}

				res := pl.Reply(ctx, line, reply.Context{Profile: &p, History: pl.History()})
				fmt.Printf("%s: %s\n", p.Name, res.Text)
				if interactive {
					fmt.Println()
				}

				if !noSave && line != "" {
					if err := saveExchange(ctx, rt.store, sessionID, p.ID, line, res); err != nil {
						rt.logger.Warn("could not store turn", "session", sessionID, "err", err)
					}
				}
			}
			if interactive {
				fmt.Println()
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume (and append to) a stored session")
	cmd.Flags().StringVar(&loadFile, "load", "", "restore the conversation window from a JSON export")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store this conversation")

	return cmd
}

// saveExchange stores the user turn and the reply of one exchange.
func saveExchange(ctx context.Context, store *memory.Store, sessionID, profileID, message string, res reply.Result) error {
	turns := []memory.Turn{
		{Role: memory.RoleUser, Text: message, At: res.Timestamp},
		{Role: memory.RoleAgent, Text: res.Text, At: res.Timestamp, Method: string(res.ReportedMethod())},
	}
	for _, t := range turns {
		if err := store.AppendTurn(ctx, sessionID, profileID, t); err != nil {
			return err
		}
	}
	return nil
}

// loadSavedTurns reads a JSON export and returns the turns of its most
// recent session.
func loadSavedTurns(path string) ([]memory.Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := export.LoadJSON(f)
	if err != nil {
		return nil, err
	}
	if len(data.Sessions) == 0 {
		return nil, nil
	}
	return data.Sessions[0].Turns, nil
}

func printPipelineStats(st reply.Stats) {
	fmt.Printf("Tiers:  %s\n", strings.Join(st.Tiers, " -> "))
	for _, name := range st.Tiers {
		ts := st.TierOutcome[name]
		fmt.Printf("  %-12s served %d, failed %d\n", name, ts.Served, ts.Failed)
	}
	fmt.Printf("Cache:  %d entries, %d hits\n", st.CacheSize, st.CacheHits)
	fmt.Printf("Window: %d/%d turns\n", st.WindowLen, st.WindowCap)
}

// maxChatLine bounds a single pasted message.
const maxChatLine = 1 << 20

// newLineScanner reads chat input line by line, allowing lines well past
// bufio's default token size.
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxChatLine)
	return sc
}
