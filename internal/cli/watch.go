package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		debounceMs int
		llmExtract bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and import backstory files as they change",
		Long: `Start a long-running watcher that monitors a directory of backstory files.
New files become profiles; edited files replace the profile of the same name;
deleted files delete it.

Changes are debounced so that rapid saves are handled once.

Press Ctrl-C to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			if err := addWatchDirs(watcher, root); err != nil {
				return fmt.Errorf("add watch directories: %w", err)
			}

			debounce := time.Duration(debounceMs) * time.Millisecond
			fmt.Printf("Watching %s for backstory changes (debounce %s). Press Ctrl-C to stop.\n", root, debounce)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			pending := make(map[string]fsnotify.Op)
			timer := time.NewTimer(debounce)
			timer.Stop()

			for {
				select {
				case <-sigCh:
					fmt.Println("\nStopping watcher.")
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					rel, err := filepath.Rel(root, event.Name)
					if err != nil || rel == "." || shouldIgnoreEvent(rel) {
						continue
					}

					if event.Has(fsnotify.Create) {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
							_ = addWatchDirs(watcher, event.Name)
							continue
						}
					}
					if !isProfileFile(rel) {
						continue
					}

					pending[event.Name] |= event.Op
					timer.Reset(debounce)

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stderr, "  watch error: %v\n", err)

				case <-timer.C:
					if len(pending) == 0 {
						continue
					}
					batch := pending
					pending = make(map[string]fsnotify.Op)
					processChanges(ctx, rt, batch, profileOptions{llmExtract: llmExtract})

				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce interval in milliseconds")
	cmd.Flags().BoolVar(&llmExtract, "llm-extract", false, "use the configured model to pick memories")

	return cmd
}

// addWatchDirs recursively adds directories to the watcher, skipping hidden ones.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHiddenDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// shouldIgnoreEvent reports whether any element of a relative path is hidden.
func shouldIgnoreEvent(rel string) bool {
	for _, p := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(p, ".") {
			return true
		}
	}
	return false
}

// processChanges applies a batch of file events: removed files forget their
// profile, created or written files (re)import it.
func processChanges(ctx context.Context, rt *runtime, batch map[string]fsnotify.Op, opts profileOptions) {
	var added, removed int

	for path := range batch {
		name := profileNameFromPath(path)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			p, lookupErr := rt.store.GetProfileByName(ctx, name)
			if lookupErr != nil {
				continue
			}
			if err := rt.orch.Forget(ctx, p); err != nil {
				fmt.Fprintf(os.Stderr, "  warning: remove %s: %v\n", name, err)
				continue
			}
			removed++
			continue
		}

		fileOpts := opts
		fileOpts.name = name
		if _, err := ingestFile(ctx, rt, path, fileOpts, true); err != nil {
			fmt.Fprintf(os.Stderr, "  warning: %v\n", err)
			continue
		}
		added++
	}

	if added+removed == 0 {
		return
	}
	ts := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %d imported, %d removed\n", ts, added, removed)
}
