package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type recordingReloader struct {
	reloaded chan struct{}
}

func (r *recordingReloader) ReloadExclusions(ctx context.Context) {
	select {
	case r.reloaded <- struct{}{}:
	default:
	}
}

func TestWatcherReloadsOnWorkbookChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusion list.xlsx")
	reloader := &recordingReloader{reloaded: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(path, true, reloader)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloader.reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after workbook write")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusion list.xlsx")
	reloader := &recordingReloader{reloaded: make(chan struct{}, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(path, true, reloader)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloader.reloaded:
		t.Fatal("unexpected reload for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDisabled(t *testing.T) {
	w := New("anywhere.xlsx", false, &recordingReloader{reloaded: make(chan struct{}, 1)})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("disabled watcher must be a no-op, got %v", err)
	}
}
