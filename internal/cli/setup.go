package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/heartline/heartline/internal/adapter"
	"github.com/heartline/heartline/internal/config"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time configuration",
		Long:  "Choose the model behind generative replies, API keys and the embedding provider for semantic recall.",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)
			readSecret := func() string { return readLineBuf(reader) }
			if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
				readSecret = func() string {
					b, err := term.ReadPassword(fd)
					fmt.Println()
					if err != nil {
						return ""
					}
					return strings.TrimSpace(string(b))
				}
			}

			fmt.Println("Welcome to Heartline! Let's configure your companion's voice.")
			fmt.Println()

			cfg := runSetup(reader, os.Stdout, readSecret, config.DefaultGlobal())

			if err := config.SaveGlobal(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			path, _ := config.GlobalConfigPath()
			fmt.Printf("Configuration saved to %s\n", path)
			fmt.Println("Run `heartline init` to create the database, then add a profile.")
			return nil
		},
	}
}

// runSetup walks through the setup questions and returns the updated config.
// readSecret reads API keys without echo when possible.
func runSetup(reader *bufio.Reader, out io.Writer, readSecret func() string, cfg config.GlobalConfig) config.GlobalConfig {
	// Step 1: generative tier provider.
	fmt.Fprintln(out, "Which model should write replies?")
	fmt.Fprintln(out, "  [1] Claude (Anthropic)")
	fmt.Fprintln(out, "  [2] OpenAI")
	fmt.Fprintln(out, "  [3] OpenRouter")
	fmt.Fprintln(out, "  [4] Gemini (Google)")
	fmt.Fprintln(out, "  [5] Ollama (local)")
	fmt.Fprintln(out, "  [6] None, rule-based replies only")
	fmt.Fprint(out, "> ")

	askKey := func(label, envVar string, dest *string) {
		fmt.Fprintf(out, "Enter your %s API key (or press Enter to set %s later): ", label, envVar)
		if key := readSecret(); key != "" {
			*dest = key
		}
	}

	cfg.Reply.GenerativeEnabled = true
	switch strings.TrimSpace(readLineBuf(reader)) {
	case "1":
		cfg.Provider = adapter.ProviderClaude
		askKey("Anthropic", "ANTHROPIC_API_KEY", &cfg.Keys.Anthropic)
	case "2":
		cfg.Provider = adapter.ProviderOpenAI
		askKey("OpenAI", "OPENAI_API_KEY", &cfg.Keys.OpenAI)
	case "3":
		cfg.Provider = adapter.ProviderOpenRouter
		askKey("OpenRouter", "OPENROUTER_API_KEY", &cfg.Keys.OpenRouter)
		fmt.Fprint(out, "Model (press Enter for openai/gpt-4o-mini): ")
		if m := readLineBuf(reader); m != "" {
			cfg.Model = m
		}
	case "4":
		cfg.Provider = adapter.ProviderGemini
		askKey("Gemini", "GEMINI_API_KEY", &cfg.Keys.Gemini)
	case "5":
		cfg.Provider = adapter.ProviderOllama
		fmt.Fprintf(out, "Completion model (press Enter for %s): ", cfg.Ollama.CompletionModel)
		if m := readLineBuf(reader); m != "" {
			cfg.Ollama.CompletionModel = m
		}
	case "6":
		cfg.Reply.GenerativeEnabled = false
	default:
		fmt.Fprintln(out, "Unrecognized choice; replies will be rule-based only.")
		cfg.Reply.GenerativeEnabled = false
	}

	fmt.Fprintln(out)

	// Step 2: embeddings for semantic recall.
	fmt.Fprintln(out, "For semantic memory recall, use:")
	fmt.Fprintln(out, "  [1] Local embeddings via Ollama (private, free; requires Ollama)")
	fmt.Fprintln(out, "  [2] OpenAI embeddings")
	fmt.Fprintln(out, "  [3] None, keyword recall only")
	fmt.Fprint(out, "> ")

	switch strings.TrimSpace(readLineBuf(reader)) {
	case "2":
		cfg.Embedder = adapter.ProviderOpenAI
		if cfg.Keys.OpenAI == "" {
			fmt.Fprint(out, "Enter your OpenAI API key: ")
			cfg.Keys.OpenAI = readSecret()
		}
	case "3":
		cfg.Embedder = "none"
	default:
		cfg.Embedder = adapter.ProviderOllama
		fmt.Fprintf(out, "Ollama host (press Enter for %s): ", cfg.Ollama.Host)
		if host := readLineBuf(reader); host != "" {
			cfg.Ollama.Host = host
		}
	}

	fmt.Fprintln(out)
	return cfg
}

// readLineBuf reads a trimmed line from a bufio.Reader.
func readLineBuf(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
