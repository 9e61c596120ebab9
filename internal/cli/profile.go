package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/config"
	"github.com/heartline/heartline/internal/memory"
)

// profileExts are the backstory file types import and watch pick up.
var profileExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// isProfileFile reports whether name looks like a backstory file.
func isProfileFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return profileExts[strings.ToLower(filepath.Ext(base))]
}

// profileNameFromPath derives a display name from a file name:
// "aria-rose.md" becomes "Aria Rose".
func profileNameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

type profileOptions struct {
	name        string
	description string
	addressedAs string
	tags        []string
	llmExtract  bool
}

// buildProfile derives a profile from backstory text. With llmExtract the
// configured model picks the memories; keyword extraction is the fallback.
func buildProfile(ctx context.Context, gcfg config.GlobalConfig, backstory string, opts profileOptions) memory.Profile {
	p := memory.BuildProfile(opts.name, opts.description, backstory, opts.addressedAs, opts.tags)
	if !opts.llmExtract {
		return p
	}

	llm, err := buildLLM(gcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Warning: model extraction unavailable: %v\n", err)
		return p
	}
	items, err := memory.ExtractMemoriesWithModel(ctx, llm, backstory, memory.MaxExtractedMemories)
	if err != nil || len(items) == 0 {
		fmt.Fprintln(os.Stderr, "  Warning: model extraction returned nothing; using keyword extraction")
		return p
	}
	p.Memories = items
	p.Traits = memory.ExtractTraits(p.MemoryTexts())
	return p
}

// ingestFile creates a profile from a backstory file. With replace, an
// existing profile of the same name is forgotten first.
func ingestFile(ctx context.Context, rt *runtime, path string, opts profileOptions, replace bool) (memory.Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return memory.Profile{}, fmt.Errorf("read %s: %w", path, err)
	}
	if opts.name == "" {
		opts.name = profileNameFromPath(path)
	}

	if replace {
		if old, err := rt.store.GetProfileByName(ctx, opts.name); err == nil {
			if err := rt.orch.Forget(ctx, old); err != nil {
				return memory.Profile{}, fmt.Errorf("replace %s: %w", opts.name, err)
			}
		} else if !errors.Is(err, memory.ErrProfileNotFound) {
			return memory.Profile{}, err
		}
	}

	p := buildProfile(ctx, rt.cfg, string(content), opts)
	return rt.orch.Ingest(ctx, p)
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create and inspect companion profiles",
	}
	cmd.AddCommand(newProfileCreateCmd(), newProfileListCmd(), newProfileShowCmd(), newProfileDeleteCmd())
	return cmd
}

func newProfileCreateCmd() *cobra.Command {
	var (
		opts profileOptions
		file string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile from a backstory file",
		Long: `Create a companion profile. Memories, traits and the term of address are
extracted from the backstory.

Examples:
  heartline profile create --file mira.md
  heartline profile create --name Mira --file story.txt --addressed-as Aria
  heartline profile create --file mira.md --llm-extract`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			p, err := ingestFile(cmd.Context(), rt, file, opts, false)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s (id: %s) with %d memories\n", p.Name, p.ID, len(p.Memories))
			fmt.Printf("Addressed as: %s\n", p.Address())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "backstory file (markdown or text)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "profile name (default: derived from file name)")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "short description")
	cmd.Flags().StringVar(&opts.addressedAs, "addressed-as", "", "what the companion calls the user (default: extracted)")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "comma-separated tags")
	cmd.Flags().BoolVar(&opts.llmExtract, "llm-extract", false, "use the configured model to pick memories")

	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			profiles, err := rt.store.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles yet.")
				return nil
			}
			for _, p := range profiles {
				fmt.Printf("%-20s %s  last used %s\n", p.Name, p.ID[:8], p.LastUsedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	var showBackstory bool

	cmd := &cobra.Command{
		Use:   "show <profile>",
		Short: "Show a profile's traits and memories",
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

			fmt.Printf("\nProfile:  %s (id: %s)\n", p.Name, p.ID)
			if p.Description != "" {
				fmt.Printf("About:    %s\n", p.Description)
			}
			fmt.Printf("Address:  %s\n", p.Address())
			if len(p.Tags) > 0 {
				fmt.Printf("Tags:     %s\n", strings.Join(p.Tags, ", "))
			}
			fmt.Printf("Traits:   %s\n", formatWeights(p.Traits))
			if len(p.Emotions) > 0 {
				fmt.Printf("Emotions: %s\n", formatWeights(p.Emotions))
			}
			fmt.Printf("Created:  %s\n", p.CreatedAt.Format("2006-01-02 15:04"))

			fmt.Printf("\nMemories (%d):\n", len(p.Memories))
			for i, m := range p.Memories {
				fmt.Printf("  %2d. %s\n", i+1, m.Text)
			}
			if showBackstory {
				fmt.Println("\nBackstory:")
				fmt.Println(p.Backstory)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&showBackstory, "backstory", false, "also print the raw backstory")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile>",
		Short: "Delete a profile with its memories and conversation turns",
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
			if err := rt.orch.Forget(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("Deleted %s.\n", p.Name)
			return nil
		},
	}
}

// formatWeights renders a weight map heaviest first.
func formatWeights(m map[string]float64) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %.2f", k, m[k])
	}
	return strings.Join(parts, ", ")
}
