package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atikulmunna/dlcount/internal/fsutil"
)

func TestWatchAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "download_counts.json")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// An unrelated file in the same directory must not trigger an event.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fsutil.WriteFileAtomic(path, []byte(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events:
		if ev.Path != w.Path() {
			t.Errorf("expected event for %q, got %q", w.Path(), ev.Path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "counts.json"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
