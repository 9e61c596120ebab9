package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"mira.md", false},
		{"friends/aria.txt", false},
		{".git/HEAD", true},
		{"drafts/.mira.md.swp", true},
		{".hidden/mira.md", true},
	}

	for _, tt := range tests {
		got := shouldIgnoreEvent(tt.rel)
		if got != tt.want {
			t.Errorf("shouldIgnoreEvent(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestAddWatchDirs_SkipsHidden(t *testing.T) {
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "friends"), 0o755)
	os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir); err != nil {
		t.Fatalf("addWatchDirs: %v", err)
	}

	watched := make(map[string]bool)
	for _, p := range watcher.WatchList() {
		rel, _ := filepath.Rel(dir, p)
		watched[rel] = true
	}

	if !watched["."] {
		t.Error("root directory should be watched")
	}
	if !watched["friends"] {
		t.Error("friends/ should be watched")
	}
	if watched[".git"] || watched[filepath.Join(".git", "objects")] {
		t.Error(".git should not be watched")
	}
}

func TestFindProfileFiles(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "friends"), 0o755)
	os.MkdirAll(filepath.Join(dir, ".drafts"), 0o755)
	for _, f := range []string{"mira.md", "friends/aria-rose.txt", "notes.json", ".drafts/old.md", "friends/.swap.md"} {
		os.WriteFile(filepath.Join(dir, f), []byte("We were happy."), 0o644)
	}

	files, err := findProfileFiles(dir)
	if err != nil {
		t.Fatalf("findProfileFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 backstory files, got %v", files)
	}

	if _, err := findProfileFiles(filepath.Join(dir, "mira.md")); err == nil {
		t.Error("a file path should be rejected")
	}
}
