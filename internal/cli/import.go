package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/heartline/heartline/internal/memory"
)

func newImportCmd() *cobra.Command {
	var (
		replace    bool
		llmExtract bool
	)

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Create profiles from every backstory file in a directory",
		Long: `Walk a directory and create one profile per markdown or text file. The
profile name comes from the file name ("aria-rose.md" becomes "Aria Rose").

Profiles that already exist are skipped unless --replace is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := findProfileFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("No backstory files found.")
				return nil
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetDescription("  Importing profiles"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var created, skipped int
			var failures []string
			for _, path := range files {
				p, err := ingestFile(cmd.Context(), rt, path, profileOptions{llmExtract: llmExtract}, replace)
				switch {
				case err == nil:
					created++
					rt.logger.Debug("profile imported", "profile", p.Name, "memories", len(p.Memories))
				case !replace && errors.Is(err, memory.ErrProfileExists):
					skipped++
				default:
					failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Printf("%d profiles imported, %d skipped (already exist)\n", created, skipped)
			for _, f := range failures {
				fmt.Fprintf(os.Stderr, "  Warning: %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "replace profiles that already exist")
	cmd.Flags().BoolVar(&llmExtract, "llm-extract", false, "use the configured model to pick memories")

	return cmd
}

// findProfileFiles returns the backstory files under dir, skipping hidden
// directories.
func findProfileFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && isHiddenDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isProfileFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func isHiddenDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
